// Package handlers exposes the services as a JSON HTTP API.
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/paintms/internal/auth"
	"github.com/diewo77/paintms/internal/httpx"
	"github.com/diewo77/paintms/internal/logging"
	"github.com/diewo77/paintms/internal/services"
	"github.com/diewo77/paintms/internal/validation"
	"github.com/sirupsen/logrus"
)

// dayLayout is the date-only form accepted in bodies and query strings.
const dayLayout = "2006-01-02"

// responder maps service errors to JSON responses.
type responder struct {
	log logrus.FieldLogger
	dev bool
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, module, funcName string, err error) {
	var (
		verr  *services.ValidationError
		nferr *services.NotFoundError
		cferr *services.ConflictError
		inerr *services.InconsistencyError
	)
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", verr.Violations)
	case errors.As(err, &nferr):
		httpx.JSONError(w, http.StatusNotFound, nferr.Resource+"_not_found", map[string]any{"ids": nferr.IDs})
	case errors.As(err, &cferr):
		httpx.JSONError(w, http.StatusConflict, "delete_conflict", map[string]any{
			"message":       cferr.Message,
			"invoice_count": len(cferr.Invoices),
			"invoices":      cferr.Invoices,
		})
	case errors.As(err, &inerr):
		logging.LogError(rs.log, module, funcName, "stored total does not match items", inerr, err)
		httpx.JSONError(w, http.StatusInternalServerError, "inconsistent_state", map[string]any{
			"invoice_id": inerr.InvoiceID,
			"op":         inerr.Op,
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, services.ErrWrongPassword):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_current_password", nil)
	default:
		logging.LogError(rs.log, module, funcName, r.Method+" "+r.URL.Path, nil, err)
		var details any
		if rs.dev {
			details = err.Error()
		}
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", details)
	}
}

// decode reads the body into dst and runs its validate tags. It writes the
// 400 response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if v := validation.Struct(dst); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := httpx.PathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
	}
	return id, ok
}

// requestMeta captures the caller address and agent for the audit trail.
func requestMeta(r *http.Request) services.RequestMeta {
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return services.RequestMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}

// activityFor builds an audit event for the authenticated caller.
func activityFor(r *http.Request, action string, details any) services.Activity {
	uid, _ := auth.UserIDFromContext(r.Context())
	meta := requestMeta(r)
	return services.Activity{
		UserID:    uid,
		Action:    action,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
}

// FlexUint accepts an unsigned integer written as a JSON number or a numeric string.
type FlexUint uint

func (f *FlexUint) UnmarshalJSON(b []byte) error {
	s, ok := scalar(b)
	if !ok {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unsigned integer %s", b)
	}
	*f = FlexUint(n)
	return nil
}

// FlexInt accepts an integer written as a JSON number (2 or 2.0) or a numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s, ok := scalar(b)
	if !ok {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, strconv.IntSize); err == nil {
		*f = FlexInt(n)
		return nil
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil || x != math.Trunc(x) || math.Abs(x) > math.MaxInt32 {
		return fmt.Errorf("invalid integer %s", b)
	}
	*f = FlexInt(x)
	return nil
}

// FlexTime accepts a date (2006-01-02) or an RFC 3339 timestamp.
type FlexTime struct {
	time.Time
}

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	s, ok := scalar(b)
	if !ok {
		f.Time = time.Time{}
		return nil
	}
	t, err := parseTime(s)
	if err != nil {
		return err
	}
	f.Time = t
	return nil
}

// Ptr returns nil for an absent or empty value.
func (f *FlexTime) Ptr() *time.Time {
	if f == nil || f.IsZero() {
		return nil
	}
	t := f.Time
	return &t
}

// OptionalTime is a FlexTime that records whether the field was sent.
// An explicit null or empty string is set with a zero time.
type OptionalTime struct {
	FlexTime
	Set bool
}

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	return o.FlexTime.UnmarshalJSON(b)
}

// Cleared reports an explicit null or empty value.
func (o OptionalTime) Cleared() bool {
	return o.Set && o.IsZero()
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dayLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// scalar unquotes b. It reports false for null and empty strings.
func scalar(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return "", false
	}
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	return s, s != ""
}
