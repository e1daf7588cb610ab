package option

import (
	"encoding/json"
	"maps"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

func AsInt(v any) (int64, bool) {
	var vv = reflect.ValueOf(v)
	if vv.IsValid() {
		switch vv.Kind() {
		case reflect.String:
			if v, err := strconv.ParseInt(vv.String(), 10, 64); err == nil {
				return v, true
			}
		case reflect.Bool:
			if vv.Bool() {
				return 1, true
			}
			return 0, true
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return vv.Int(), true
		case reflect.Float32, reflect.Float64:
			return int64(vv.Float()), true
		default:
		}
	}
	return 0, false
}
func AsString(v any) (string, bool) {
	var vv = reflect.ValueOf(v)
	if vv.IsValid() {
		switch vv.Kind() {
		case reflect.String:
			return vv.String(), true
		case reflect.Bool:
			return strconv.FormatBool(vv.Bool()), true
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(vv.Int(), 10), true
		case reflect.Float32, reflect.Float64:
			return strconv.FormatFloat(vv.Float(), 'f', -1, 64), true
		default:
		}
	}
	return "", false
}
func AsBool(v any) (bool, bool) {
	var vv = reflect.ValueOf(v)
	if vv.IsValid() {
		switch vv.Kind() {
		case reflect.String:
			if ok, err := strconv.ParseBool(vv.String()); err == nil {
				return ok, true
			}
		case reflect.Bool:
			return vv.Bool(), true
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return vv.Int() > 0, true
		default:
		}
	}
	return false, false
}
func AsDuration(v any) (time.Duration, bool) {
	switch vv := v.(type) {
	case time.Duration:
		return vv, true
	case string:
		if dur, err := time.ParseDuration(vv); err == nil {
			return dur, true
		}
	case int64:
		return time.Duration(vv), true
	}
	return 0, false
}

// Option is a small concurrency-safe bag of loosely typed fields.
type Option struct {
	lck sync.Mutex
	obj map[string]any
}

func (opt *Option) AsInt(key string) (int64, bool) {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	if v, ok := opt.obj[key]; ok {
		return AsInt(v)
	}
	return 0, false
}
func (opt *Option) AsString(key string) (string, bool) {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	if v, ok := opt.obj[key]; ok {
		return AsString(v)
	}
	return "", false
}
func (opt *Option) AsBool(key string) (bool, bool) {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	if v, ok := opt.obj[key]; ok {
		return AsBool(v)
	}
	return false, false
}
func (opt *Option) AsDuration(key string) (time.Duration, bool) {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	if v, ok := opt.obj[key]; ok {
		return AsDuration(v)
	}
	return 0, false
}
func (opt *Option) AsMap(key string) (map[string]any, bool) {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	v, ok := opt.obj[key].(map[string]any)
	return v, ok
}
func (opt *Option) Set(key string, val any) {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	if _, ok := val.(*Option); ok && opt == val {
		return
	}
	opt.obj[key] = val
}
func (opt *Option) Del(key string) {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	delete(opt.obj, key)
}
func (opt *Option) Exists(key string) (ok bool) {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	_, ok = opt.obj[key]
	return
}
func (opt *Option) Len() int {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	return len(opt.obj)
}
func (opt *Option) Raw() map[string]any {
	return opt.obj
}
func (opt *Option) Clone() *Option {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	var cpy = New(nil)
	raw, err := json.Marshal(opt.obj)
	if err != nil {
		return cpy
	}
	json.Unmarshal(raw, &cpy.obj)
	return cpy
}
func (opt *Option) String() string {
	opt.lck.Lock()
	defer opt.lck.Unlock()
	raw, err := json.Marshal(opt.obj)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
func (opt *Option) GJson() gjson.Result {
	return gjson.Parse(opt.String())
}
func (opt *Option) UnmarshalJSON(b []byte) error {
	if b == nil {
		return nil
	}
	return json.Unmarshal(b, &opt.obj)
}
func (opt *Option) MarshalJSON() ([]byte, error) {
	return json.Marshal(opt.obj)
}

func New(obj map[string]any) *Option {
	if obj == nil {
		obj = make(map[string]any)
	} else {
		obj = maps.Clone(obj)
	}
	return &Option{obj: obj}
}
func FromJson(raw string) (*Option, error) {
	var jsonMap = make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &jsonMap); err != nil {
		return nil, err
	}
	return New(jsonMap), nil
}
