package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("campo requerido"), http.StatusBadRequest},
		{"not found", NotFound("no existe"), http.StatusNotFound},
		{"conflict", Conflict("mesa ocupada"), http.StatusConflict},
		{"storage", Storage("query failed", errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageHidesStorageDetails(t *testing.T) {
	err := Storage("query failed", errors.New("pq: relation does not exist"))
	if got := Message(err); got != "Error interno del servidor" {
		t.Errorf("Message() leaked internals: %q", got)
	}

	if got := Message(Conflict("La mesa no está disponible")); got != "La mesa no está disponible" {
		t.Errorf("Message() = %q", got)
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handling request: %w", NotFound("Pedido no encontrado"))
	if got := KindOf(err); got != KindNotFound {
		t.Errorf("KindOf() = %v, want KindNotFound", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("query failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}
