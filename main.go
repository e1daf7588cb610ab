package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/api"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/behavior"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/cache"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/campaign"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/common"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/config"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/db"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/facebook"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/logx"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/sched"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
)

type appOptions struct {
	Server    string                    `json:"server" validate:"required" default:":8089"`
	Env       string                    `json:"env" validate:"oneof=dev prod" default:"dev"`
	Verbose   bool                      `json:"verbose" default:"true"`
	Redis     string                    `json:"redis"`
	Log       *logx.ZapConfig           `json:"log"`
	Db        *db.Options               `json:"db" validate:"required"`
	Client    *facebook.Options         `json:"client"`
	Resolver  *facebook.ResolverOptions `json:"resolver"`
	Behavior  *behavior.Options         `json:"behavior"`
	Processor *campaign.Options         `json:"processor"`
	Sched     *sched.Options            `json:"sched"`
}

func loadOptions(file string) (*appOptions, error) {
	var conf = config.WithStructHook()
	conf.SetConfigFile(file)
	if err := conf.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file failed,%w", err)
	}
	var opts = new(appOptions)
	if err := conf.Unmarshal(opts, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
	}); err != nil {
		return nil, fmt.Errorf("unmarshal from config err,%w", err)
	}
	if _, err := config.Validate(opts); err != nil {
		return nil, fmt.Errorf("config validate failed[%w]", err)
	}
	return opts, nil
}

func buildLogger(opts *appOptions) (*zap.Logger, error) {
	if !opts.Verbose {
		return zap.NewNop(), nil
	}
	if opts.Log == nil {
		opts.Log = logx.New()
	}
	if opts.Log.DatedDir == "" {
		opts.Log.DatedDir = utils.GetDefaultLogDir()
	}
	logger, err := opts.Log.Build()
	if err != nil {
		return nil, err
	}
	return logger.Zap, nil
}

func main() {
	var configFile = "config.yaml"
	if args := os.Args[1:]; len(args) > 0 {
		configFile = args[0]
	}
	opts, err := loadOptions(configFile)
	if err != nil {
		panic(err)
	}
	logger, err := buildLogger(opts)
	if err != nil {
		panic(fmt.Errorf("build logger failed,%w", err))
	}
	common.DefaultLogger = logger

	opts.Db.Ctx = context.Background()
	session, err := db.NewSession(opts.Db)
	if err != nil {
		panic(fmt.Errorf("mongo connect failed,%w", err))
	}
	defer session.Close()
	var campaigns = db.NewCampaignStore(session)
	var accounts = db.NewAccountStore(session)

	var kv cache.Cache = cache.NewMemory(nil)
	if opts.Redis != "" {
		redisOpts, err := redis.ParseURL(opts.Redis)
		if err != nil {
			panic(fmt.Errorf("bad redis uri,%w", err))
		}
		kv = cache.NewRedis(redis.NewClient(redisOpts))
	}

	var newClient = func(account *model.Account) campaign.ProtocolClient {
		return facebook.NewClient(account, opts.Client, logger)
	}
	var resolver = facebook.NewResolver(opts.Resolver, logger)
	var injector = behavior.New(opts.Behavior, utils.NewTimeRand())
	var processor = campaign.NewProcessor(
		opts.Processor, campaigns, accounts, newClient, resolver, injector, kv, logger)
	var scheduler = sched.New(opts.Sched, processor, campaigns, logger)
	if err := scheduler.Start(); err != nil {
		panic(fmt.Errorf("scheduler start failed,%w", err))
	}
	defer scheduler.Stop()

	if opts.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	var server = gin.New()
	server.Use(gin.Recovery())
	api.New(scheduler, campaigns, logger).Register(server)
	logger.Info(fmt.Sprintf("gin server listen on [%s]", opts.Server))
	if err := server.Run(opts.Server); err != nil {
		panic(fmt.Errorf("gin server run failed,%w", err))
	}
}
