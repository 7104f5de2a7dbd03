package solr

import (
	"bytes"
	"encoding/json"
	"fmt"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/search"
)

// envelope is the part of every Solr JSON reply this adapter reads.
type envelope struct {
	ResponseHeader struct {
		Status int `json:"status"`
	} `json:"responseHeader"`
	Response *struct {
		NumFound int64            `json:"numFound"`
		Start    int64            `json:"start"`
		Docs     []map[string]any `json:"docs"`
	} `json:"response"`
	Highlighting map[string]map[string][]string `json:"highlighting"`
	Error        *struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

// decodeEnvelope parses body and turns a Solr-reported failure into an
// error.
func decodeEnvelope(body []byte) (*envelope, error) {
	var env envelope
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&env); err != nil {
		return nil, fserrors.ParseError("malformed solr response", err).
			WithDetail("body", excerpt(body))
	}
	if env.Error != nil || env.ResponseHeader.Status != 0 {
		msg := "solr reported an error"
		if env.Error != nil && env.Error.Msg != "" {
			msg = fmt.Sprintf("solr reported an error: %s", env.Error.Msg)
		}
		return nil, fserrors.New(fserrors.ErrCodeBackendStatus, msg, nil).
			WithDetail("status", fmt.Sprint(env.ResponseHeader.Status))
	}
	return &env, nil
}

// ParseResponse decodes a select handler reply.
func ParseResponse(body []byte) (search.Response, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		return search.Response{}, err
	}
	if env.Response == nil {
		return search.Response{}, fserrors.ParseError("solr response has no response section", nil).
			WithDetail("body", excerpt(body))
	}
	return search.Response{
		NumFound:     env.Response.NumFound,
		Start:        env.Response.Start,
		Docs:         env.Response.Docs,
		Highlighting: env.Highlighting,
		Body:         append(json.RawMessage(nil), body...),
	}, nil
}

const maxExcerpt = 512

func excerpt(body []byte) string {
	if len(body) > maxExcerpt {
		return string(body[:maxExcerpt]) + "..."
	}
	return string(body)
}
