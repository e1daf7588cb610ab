package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/option"
)

var ErrTaskCanceled = "task canceled"
var ErrTaskSystem = "system failure"
var ErrTaskArgs = "bad task arguments"
var ErrNet = "network failure"
var ErrStatus = "bad status code"
var ErrApi = "api failure"
var ErrBadResponse = "bad response"
var ErrAmbiguousResponse = "ambiguous response"
var ErrCredentialExpired = "session expired"
var ErrCheckpoint = "account checkpoint"
var ErrBlockSignal = "action blocked"
var ErrResolveFailed = "url resolve failed"
var ErrExtractNotFound = "post id not found"
var ErrNoTargets = "no targets available"
var ErrQuotaReached = "comment quota reached"
var ErrAccountUnhealthy = "account unhealthy"
var ErrStatsUnavailable = "stats unavailable"
var ErrCommentPool = "comment pool empty"
var ErrNeedProxy = "proxy required"

type ErrBase struct {
	tag    string
	err    error
	retry  bool
	fields *option.Option
}

func (b *ErrBase) Tag() string {
	return b.tag
}
func (b *ErrBase) WithTag(tag string) *ErrBase {
	b.tag = tag
	return b
}
func (b *ErrBase) Error() string {
	var err string
	if b.err != nil {
		err = b.err.Error()
	}
	var r, _ = json.Marshal(map[string]any{
		"tag":    b.Tag(),
		"error":  err,
		"fields": b.fields.Raw(),
	})
	return fmt.Sprintf("ErrBase:%s", string(r))
}
func (b *ErrBase) RawError() error {
	return b.err
}
func (b *ErrBase) Unwrap() error {
	return b.err
}
func (b *ErrBase) WithError(err error) *ErrBase {
	var e *ErrBase
	if errors.As(err, &e) {
		*b = *e
		b.fields = e.fields.Clone()
	} else {
		b.err = err
	}
	return b
}
func (b *ErrBase) WithField(key string, value any) *ErrBase {
	b.fields.Set(key, value)
	return b
}
func (b *ErrBase) WithRetry(retry bool) *ErrBase {
	b.retry = retry
	return b
}
func (b *ErrBase) Option() *option.Option {
	return b.fields
}
func (b *ErrBase) ShouldRetry() bool {
	return b.retry
}

type IRetry interface {
	ShouldRetry() bool
}

type ApiError struct {
	*ErrBase
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (err *ApiError) Unwrap() error {
	return err.ErrBase
}
func (err *ApiError) WithCode(code int) *ApiError {
	err.Code = code
	err.fields.Set("code", code)
	return err
}
func (err *ApiError) WithMessage(message string) *ApiError {
	err.Message = message
	err.fields.Set("message", message)
	return err
}

type NetError struct {
	*ErrBase
}

func (netErr *NetError) Unwrap() error {
	return netErr.ErrBase
}

func (netErr *NetError) ShouldRetry(e error) bool {
	var v *net.OpError
	if errors.As(e, &v) {
		if v.Timeout() || v.Temporary() {
			return true
		}
	}
	return false
}

type StatusError struct {
	*ErrBase
	Status int `json:"code"`
}

func (err *StatusError) Unwrap() error {
	return err.ErrBase
}
func (err *StatusError) WithStatus(status int) *StatusError {
	err.Status = status
	err.fields.Set("status", status)
	return err
}
func (err *StatusError) ShouldRetry() bool {
	return err.Status == http.StatusInternalServerError ||
		err.Status == http.StatusBadGateway ||
		err.Status == http.StatusServiceUnavailable ||
		err.Status == http.StatusGatewayTimeout
}

func Retry(err error) *ErrBase {
	return NewBase().WithRetry(true).WithError(err)
}
func NoRetry(err error) *ErrBase {
	return NewBase().WithError(err)
}
func IsErrBase(err error) bool {
	var errBase *ErrBase
	if errors.As(err, &errBase) {
		return true
	}
	if strings.HasPrefix(err.Error(), "ErrBase:") {
		return true
	}
	return false
}
func TagOf(err error) string {
	var errBase *ErrBase
	if errors.As(err, &errBase) {
		return errBase.Tag()
	}
	return ""
}
func HasTag(err error, tag string) bool {
	return err != nil && TagOf(err) == tag
}
func ParseErrBase(err string) (*ErrBase, bool) {
	if IsErrBase(errors.New(err)) {
		err = strings.Replace(err, "ErrBase:", "", 1)
		var r, err = option.FromJson(err)
		if err != nil {
			return nil, false
		}
		var tag, _ = r.AsString("tag")
		var e, _ = r.AsString("error")
		var fields, _ = r.AsMap("fields")
		return &ErrBase{tag: tag, err: errors.New(e), fields: option.New(fields)}, true
	}
	return nil, false
}
func NewBase() *ErrBase {
	return &ErrBase{fields: option.New(nil)}
}
func NewApiError() *ApiError {
	return &ApiError{
		ErrBase: NewBase().WithTag(ErrApi),
	}
}
func NewStatusError(code int) *StatusError {
	return (&StatusError{
		ErrBase: NewBase().WithTag(ErrStatus),
	}).WithStatus(code)
}
func NewBadResponseError() *ErrBase {
	return NewBase().WithTag(ErrBadResponse)
}
func NewAmbiguousError() *ErrBase {
	return NewBase().WithTag(ErrAmbiguousResponse)
}
func NewCredentialError() *ErrBase {
	return NewBase().WithTag(ErrCredentialExpired)
}
func NewCheckpointError() *ErrBase {
	return NewBase().WithTag(ErrCheckpoint)
}
func NewBlockError() *ErrBase {
	return NewBase().WithTag(ErrBlockSignal)
}
func NewNetError() *NetError {
	return &NetError{
		ErrBase: NewBase().WithTag(ErrNet).WithRetry(true),
	}
}
