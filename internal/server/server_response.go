package server

import "github.com/brk3/healthdata/internal/healthstore"

type ErrorResponse struct {
	Error string `json:"error"`
}

type AuthorizationRequest struct {
	Categories []healthstore.Category `json:"categories"`
}

type AuthorizationResponse struct {
	Granted bool `json:"granted"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
}
