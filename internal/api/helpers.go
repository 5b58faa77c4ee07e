package api

import (
	"encoding/json/v2"
	"net/http"

	domainerrors "github.com/goalmateapp/goalmate-server/internal/errors"
)

// decodeJSON reads and unmarshals the request body into dst using json/v2.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		return domainerrors.Validation("invalid JSON request body").WithCause(err)
	}
	return nil
}
