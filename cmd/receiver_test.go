package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefsiam38/flowent-gateway/webhooks"
)

func TestSampleActions(t *testing.T) {
	r := webhooks.CreateReceiver([]byte("key"))
	registerSampleActions(r)

	tests := []struct {
		action  string
		params  map[string]interface{}
		want    string
		wantErr string
	}{
		{"send_email", map[string]interface{}{"recipient": "a@b.c", "subject": "s", "body": "b"}, "Email sent successfully to a@b.c", ""},
		{"send_email", map[string]interface{}{"recipient": "a@b.c"}, "", "missing required parameters: recipient, subject, body"},
		{"get_weather", map[string]interface{}{"location": "Cairo"}, "Weather in Cairo: 22°C, Sunny", ""},
		{"get_weather", map[string]interface{}{}, "", "missing required parameter: location"},
		{"create_user", map[string]interface{}{"username": "amr"}, "", "missing required parameters: username, email"},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			handler, ok := r.Handler(tt.action)
			require.True(t, ok)

			got, err := handler(context.Background(), tt.params)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
