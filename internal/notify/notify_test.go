package notify

import (
	"context"
	"testing"

	"github.com/example/hablo/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		r    Reminder
		want string
	}{
		{"no streak", Reminder{}, "¡Hola! Hoy es un buen día para practicar español."},
		{"one day", Reminder{Streak: 1}, "¡Llevas 1 día seguido! Vuelve hoy para empezar una racha."},
		{"streak with one card", Reminder{Streak: 4, DueCards: 1},
			"¡Tu racha es de 4 días! No la pierdas: juega una lección hoy.\nTienes 1 tarjeta para repasar."},
		{"cards", Reminder{DueCards: 7},
			"¡Hola! Hoy es un buen día para practicar español.\nTienes 7 tarjetas para repasar."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.r))
		})
	}
}

func TestStartText(t *testing.T) {
	assert.Contains(t, StartText(12345), "12345")
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLog(logger.Nop()).SendReminder(context.Background(), Reminder{UserID: "u1"}))
}
