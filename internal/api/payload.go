// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// PlexSignatureHeader carries the HMAC-SHA256 of the request body.
const PlexSignatureHeader = "X-Plex-Signature"

// payloadField is the form field Plex posts the JSON event in.
const payloadField = "payload"

// multipartMemory is how much of a multipart body is kept in memory; Plex
// attaches a thumbnail after the payload field.
const multipartMemory = 1 << 20

// errBodyTooLarge is returned when the body exceeds the configured cap.
var errBodyTooLarge = errors.New("request body too large")

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: limit %d bytes", errBodyTooLarge, maxErr.Limit)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// extractPayload returns the webhook JSON from a form field "payload" or,
// for any other content type, the raw body. A form without the field
// yields nil.
func extractPayload(r *http.Request, body []byte) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		r.Body = io.NopCloser(bytes.NewReader(body))
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(multipartMemory); err != nil {
				return nil, fmt.Errorf("parse multipart form: %w", err)
			}
			defer func() {
				if r.MultipartForm != nil {
					_ = r.MultipartForm.RemoveAll()
				}
			}()
		} else if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		payload := r.PostFormValue(payloadField)
		if strings.TrimSpace(payload) == "" {
			return nil, nil
		}
		return []byte(payload), nil
	default:
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, nil
		}
		return body, nil
	}
}

// verifySignature checks the hex HMAC-SHA256 of body against signature
// in constant time.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(signature))), []byte(expected))
}
