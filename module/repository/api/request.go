// Package api holds the types exchanged between the HTTP layer, the dispatch
// state machine and the protocol variants.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nitro-repo/nitro-repo/module/storage"
)

// NPMCommandHeader is sent by the npm client on every registry call.
const NPMCommandHeader = "npm-command"

// Action is the permission a request needs before a variant executes it.
type Action int

const (
	// ActionRead needs CanRead on the repository.
	ActionRead Action = iota
	// ActionDeploy needs CanDeploy on the repository.
	ActionDeploy
	// ActionLogin carries its own credentials, which the variant verifies.
	ActionLogin
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionDeploy:
		return "deploy"
	case ActionLogin:
		return "login"
	}
	return "unknown"
}

// Caller is the identity a request was resolved to. The zero value is anonymous.
type Caller struct {
	UserID   int64
	Username string
	Email    string
}

func (c Caller) Anonymous() bool {
	return c.UserID == 0
}

// Request is one protocol request against a repository.
type Request struct {
	Method string
	// Path is relative to the repository root, without a leading slash.
	Path   string
	Header http.Header
	Body   []byte
	// BaseURL is the absolute URL of the repository root, used to rewrite links.
	BaseURL string
	Caller  Caller
}

func (r *Request) NPMCommand() (string, bool) {
	if r.Header == nil {
		return "", false
	}
	values, ok := r.Header[http.CanonicalHeaderKey(NPMCommandHeader)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// WantsJSON reports whether a directory listing should be rendered as JSON.
func (r *Request) WantsJSON() bool {
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "application/json") || strings.Contains(accept, "*/*")
}

// Response is what a variant answers. Exactly one of Body or File is used.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	File        *storage.FileResponse
}

func Status(code int) *Response {
	return &Response{Status: code}
}

func Text(code int, message string) *Response {
	return &Response{Status: code, ContentType: "text/plain; charset=utf-8", Body: []byte(message)}
}

func JSON(code int, value any) (*Response, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &Response{Status: code, ContentType: "application/json", Body: data}, nil
}

// FromFile converts a storage lookup into a response. Not found becomes 404.
func FromFile(file *storage.FileResponse) *Response {
	if file == nil || file.Kind == storage.FileResponseNotFound {
		return Status(http.StatusNotFound)
	}
	return &Response{Status: http.StatusOK, File: file}
}

// CredentialVerifier checks a username and password pair.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (bool, error)
}
