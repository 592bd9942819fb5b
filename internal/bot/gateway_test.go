package bot

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestNotVisible(t *testing.T) {
	rest := func(code int) error {
		return &discordgo.RESTError{Response: &http.Response{StatusCode: code}}
	}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unknown channel", rest(http.StatusNotFound), true},
		{"missing access", rest(http.StatusForbidden), true},
		{"wrapped", fmt.Errorf("member: %w", rest(http.StatusNotFound)), true},
		{"server error", rest(http.StatusInternalServerError), false},
		{"rate limited", rest(http.StatusTooManyRequests), false},
		{"network", errors.New("connection reset"), false},
		{"no response", &discordgo.RESTError{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := notVisible(tt.err); got != tt.want {
				t.Errorf("notVisible(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
