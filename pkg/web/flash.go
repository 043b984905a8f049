package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "qplan_flash"

type level string

const (
	levelSuccess level = "success"
	levelInfo    level = "info"
	levelWarning level = "warning"
	levelError   level = "error"
)

// flash is a one-shot message shown on the next page render.
type flash struct {
	Level level  `json:"l"`
	Text  string `json:"t"`
}

func setFlashes(w http.ResponseWriter, flashes []flash) {
	if len(flashes) == 0 {
		return
	}
	b, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes reads and clears the pending messages.
func popFlashes(w http.ResponseWriter, r *http.Request) []flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []flash
	if err := json.Unmarshal(b, &flashes); err != nil {
		return nil
	}
	return flashes
}
