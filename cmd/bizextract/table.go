package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/egemenmermer/business-extractor/internal/model"
)

func renderBusinesses(w io.Writer, items []model.Business) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Name", "Category", "City", "Country", "Phone", "Email", "Website"})
	for i, b := range items {
		t.AppendRow(table.Row{i + 1, b.BusinessName, b.Category, b.City, b.Country, b.Phone, b.Email, b.Website})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 32},
		{Number: 3, WidthMax: 20},
		{Number: 8, WidthMax: 32},
	})
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d businesses", len(items))})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderTasks(w io.Writer, tasks []model.Task) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Category", "Location", "Status", "Processed", "Total", "Message"})
	for _, task := range tasks {
		t.AppendRow(table.Row{task.Category, task.Location, task.Status, task.ProcessedItems, task.TotalItems, task.Message})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, WidthMax: 40},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
