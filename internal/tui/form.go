package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldText = iota
	fieldDue
)

func buildFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Text"},
		{Label: "Due (YYYY-MM-DD)"},
	}

	if task == nil {
		return fields
	}

	fields[fieldText].Value = task.Text
	if task.DueDate != nil {
		fields[fieldDue].Value = task.DueDate.Format("2006-01-02")
	}

	return fields
}

func parseFormFields(fields []formField) (string, *time.Time, error) {
	dueDate, err := parseDue(fields[fieldDue].Value)
	if err != nil {
		return "", nil, err
	}

	return strings.TrimSpace(fields[fieldText].Value), dueDate, nil
}

func parseDue(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid due date")
	}
	return &parsed, nil
}
