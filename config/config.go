package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type SetHook func(key string, value any) error
type OptionFunc func(*Config)

func WithSetHook(f SetHook) OptionFunc {
	return func(c *Config) {
		c.setHook = f
	}
}
func StructHook(opts ...ValidateOptionFunc[any]) OptionFunc {
	return WithSetHook(func(key string, value any) error {
		var val = reflect.ValueOf(value)
		if val.IsValid() {
			if val.Kind() == reflect.Pointer {
				val = val.Elem()
			}
			if val.Kind() == reflect.Struct {
				if _, err := Validate(value, opts...); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

type Config struct {
	viper   *viper.Viper
	setHook SetHook
}

func (config *Config) Set(key string, value any) error {
	if config.setHook != nil {
		if err := config.setHook(key, value); err != nil {
			return err
		}
	}
	config.viper.Set(key, value)
	return nil
}
func (config *Config) Get(key string) any {
	return config.viper.Get(key)
}
func (config *Config) GetBool(key string) bool {
	return config.viper.GetBool(key)
}
func (config *Config) GetInt(key string) int {
	return config.viper.GetInt(key)
}
func (config *Config) GetString(key string) string {
	return config.viper.GetString(key)
}
func (config *Config) GetDuration(key string) time.Duration {
	return config.viper.GetDuration(key)
}
func (config *Config) GetStringSlice(key string) []string {
	return config.viper.GetStringSlice(key)
}
func (config *Config) IsSet(key string) bool {
	return config.viper.IsSet(key)
}
func (config *Config) SetConfigFile(in string) {
	config.viper.SetConfigFile(in)
}
func (config *Config) ConfigFileUsed() string {
	return config.viper.ConfigFileUsed()
}
func (config *Config) ReadConfig(reader io.Reader) error {
	return config.viper.ReadConfig(reader)
}
func (config *Config) ReadInConfig() error {
	return config.viper.ReadInConfig()
}
func (config *Config) Unmarshal(rawVal any, opts ...viper.DecoderConfigOption) error {
	if err := config.viper.Unmarshal(rawVal, opts...); err != nil {
		return err
	}
	if config.setHook != nil {
		return config.setHook("", rawVal)
	}
	return nil
}
func (config *Config) UnmarshalKey(key string, rawVal any, opts ...viper.DecoderConfigOption) error {
	if err := config.viper.UnmarshalKey(key, rawVal, opts...); err != nil {
		return err
	}
	if config.setHook != nil {
		return config.setHook(key, rawVal)
	}
	return nil
}

type validateOption[T any] struct {
	ctx           context.Context
	onValidFail   OnValidFail[T]
	onValidations []func(*validator.Validate) error
}

type OnValidFail[T any] func(T, validator.FieldError)
type ValidateOptionFunc[T any] func(*validateOption[T])

func WithCtx[T any](ctx context.Context) ValidateOptionFunc[T] {
	return func(vo *validateOption[T]) {
		vo.ctx = ctx
	}
}
func WithOnValidFail[T any](f OnValidFail[T]) ValidateOptionFunc[T] {
	return func(vo *validateOption[T]) {
		vo.onValidFail = f
	}
}
func WithRegisterValidation[T any](tag string, fn validator.Func) ValidateOptionFunc[T] {
	return func(vo *validateOption[T]) {
		vo.onValidations = append(vo.onValidations, func(v *validator.Validate) error {
			return v.RegisterValidation(tag, fn)
		})
	}
}

// Validate fills `default` tags and runs `validate` tags over a struct
// pointer. Fields that fail validation but carry a default are reset to the
// default and validated once more.
func Validate[T any](value T, opts ...ValidateOptionFunc[T]) (T, error) {
	var val = reflect.ValueOf(value)
	if !val.IsValid() || val.Kind() != reflect.Pointer {
		return value, fmt.Errorf("bad value type %T, require ptr", value)
	}
	if val.Elem().Kind() != reflect.Struct {
		return value, fmt.Errorf("bad value type %T, require struct", value)
	}
	var _opt = &validateOption[T]{ctx: context.Background()}
	for _, opt := range opts {
		opt(_opt)
	}
	if _opt.ctx == nil {
		_opt.ctx = context.Background()
	}
	var _validator = validator.New()
	for _, v := range _opt.onValidations {
		if err := v(_validator); err != nil {
			return value, err
		}
	}
	if err := _validator.StructCtx(_opt.ctx, value); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			for _, e := range validateErrs {
				if _opt.onValidFail != nil {
					_opt.onValidFail(value, e)
				}
			}
		}
	}
	if err := defaults.Set(value); err != nil {
		return value, err
	}
	if err := _validator.StructCtx(_opt.ctx, value); err != nil {
		return value, err
	}
	return value, nil
}

func TryValidate[T any](value T, opts ...ValidateOptionFunc[T]) T {
	Validate(value, opts...)
	return value
}

func MustValidate[T any](value T, opts ...ValidateOptionFunc[T]) T {
	_, err := Validate(value, opts...)
	if err != nil {
		panic(err)
	}
	return value
}

func New(opts ...OptionFunc) *Config {
	var c = &Config{
		viper: viper.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
func WithStructHook(opts ...ValidateOptionFunc[any]) *Config {
	return New(StructHook(opts...))
}
