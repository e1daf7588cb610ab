package db

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotConnected = errors.New("db not connected")

var DefaultOptions = func() *Options {
	return config.TryValidate(&Options{
		Ctx: context.Background(),
	})
}

type Options struct {
	Ctx          context.Context
	Uri          string        `json:"uri" validate:"required"`
	Database     string        `json:"database"`
	PingInterval time.Duration `json:"ping_interval" validate:"gt=0" default:"15s"`
}

// Session wraps a mongo client with lazy reconnect keyed on ping age.
type Session struct {
	lck        sync.Mutex
	opts       *Options
	client     *mongo.Client
	dbName     string
	latestPing time.Time
}

func (session *Session) connect() error {
	if session.client != nil {
		return nil
	}
	client, err := mongo.Connect(session.opts.Ctx, options.Client().ApplyURI(session.opts.Uri))
	if err != nil {
		return err
	}
	session.client = client
	return nil
}
func (session *Session) ping() bool {
	if session.client == nil {
		return false
	}
	if err := session.client.Ping(session.opts.Ctx, nil); err != nil {
		session.client.Disconnect(session.opts.Ctx)
		session.client = nil
		return false
	}
	return true
}

// LookUp returns a live client, reconnecting when the last ping is stale.
func (session *Session) LookUp() (*mongo.Client, error) {
	session.lck.Lock()
	defer session.lck.Unlock()
	if session.latestPing.IsZero() || time.Since(session.latestPing) > session.opts.PingInterval {
		if !session.ping() {
			if err := session.connect(); err != nil {
				return nil, err
			}
		}
		session.latestPing = time.Now()
	}
	if session.client == nil {
		return nil, ErrNotConnected
	}
	return session.client, nil
}
func (session *Session) Collection(name string) (*mongo.Collection, error) {
	client, err := session.LookUp()
	if err != nil {
		return nil, err
	}
	return client.Database(session.dbName).Collection(name), nil
}
func (session *Session) Close() error {
	session.lck.Lock()
	defer session.lck.Unlock()
	if session.client != nil {
		var err = session.client.Disconnect(session.opts.Ctx)
		session.client = nil
		return err
	}
	return nil
}

func NewSession(opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	_uri, err := url.Parse(opts.Uri)
	if err != nil {
		return nil, err
	}
	var session = &Session{opts: opts}
	session.dbName = opts.Database
	if session.dbName == "" && len(_uri.Path) > 1 {
		session.dbName = strings.TrimPrefix(_uri.Path, "/")
	}
	if session.dbName == "" {
		return nil, errors.New("mongo database not found")
	}
	if err := session.connect(); err != nil {
		return nil, err
	}
	return session, nil
}
