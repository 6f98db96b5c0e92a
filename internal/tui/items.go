package tui

import (
	"fmt"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
)

func formatTaskSummary(task model.Task) string {
	box := "[ ]"
	if task.Completed {
		box = "[x]"
	}
	if task.DueDate != nil {
		return fmt.Sprintf("%s %s (due %s)", box, task.Text, task.DueDate.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s %s", box, task.Text)
}

func shortIdentity(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
