package listing

import (
	"context"
	"errors"

	"pmdash/internal/api"
)

const (
	msgGeneric    = "Something went wrong!"
	msgUnexpected = "An unexpected error occurred!"
	msgDeleted    = "Deleted successfully"
)

type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient message for the user.
type Notice struct {
	Kind NoticeKind
	Text string
}

func Success(text string) Notice {
	return Notice{Kind: NoticeSuccess, Text: text}
}

func Failure(err error) Notice {
	return Notice{Kind: NoticeError, Text: Describe(err)}
}

// Describe turns a failed call into text fit for the status line: the
// server's own message when it sent one, a generic line otherwise.
func Describe(err error) string {
	var serr *api.ServerError
	var terr *api.TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &serr):
		if serr.Message != "" {
			return serr.Message
		}
		return msgGeneric
	case errors.As(err, &terr), errors.Is(err, context.DeadlineExceeded):
		return msgGeneric
	default:
		return msgUnexpected
	}
}
