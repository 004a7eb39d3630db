package app

import (
	"net/http"

	"enclave/internal/config"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Settings *config.Config
	HTTP     *http.Client // optional; defaults to a client with the gateway timeout
}
