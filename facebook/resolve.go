package facebook

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/common"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/config"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/request"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils/retry"

	"go.uber.org/zap"
)

type ResolverOptions struct {
	MaxHops int           `json:"max_hops" validate:"gt=0" default:"8"`
	Timeout time.Duration `json:"timeout" validate:"gte=0" default:"20s"`
	Proxy   string        `json:"proxy"`
	Cookie  string        `json:"-"`
}

// Page is a single fetched hop, enough for the resolver to decide its
// next move without holding the transport response open.
type Page struct {
	Status   int
	Location string
	Body     string
}

type FetchFunc func(ctx context.Context, url string) (*Page, error)

// Resolver turns share links, group/page URLs and already-numeric ids
// into canonical post ids, walking redirects one hop at a time.
type Resolver struct {
	opts   *ResolverOptions
	fetch  FetchFunc
	logger *zap.Logger
}

func NewResolver(opts *ResolverOptions, logger *zap.Logger) *Resolver {
	if opts == nil {
		opts = config.TryValidate(&ResolverOptions{})
	}
	if logger == nil {
		logger = common.DefaultLogger
	}
	var r = &Resolver{opts: opts, logger: logger}
	r.fetch = r.httpFetch
	return r
}

// WithFetch swaps the transport, used by tests.
func (r *Resolver) WithFetch(fetch FetchFunc) *Resolver {
	if fetch != nil {
		r.fetch = fetch
	}
	return r
}

func (r *Resolver) httpFetch(ctx context.Context, pageUrl string) (*Page, error) {
	var opts = request.DefaultRequestOptions()
	opts.Header = request.NewBrowserHeader()
	opts.Timeout = r.opts.Timeout
	opts.Proxy = r.opts.Proxy
	opts.NoRedirect = true
	if r.opts.Cookie != "" {
		opts.Header.SetCookieText(r.opts.Cookie)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return retry.Retry(func(*retry.Context) (*Page, error) {
		resp, err := request.Get(pageUrl, opts)
		if err != nil {
			return nil, model.NewNetError().WithError(err)
		}
		defer resp.Close()
		return &Page{
			Status:   resp.Status(),
			Location: resp.Header().Location(),
			Body:     resp.Text(),
		}, nil
	}, retry.WithCtx(ctx), retry.WithMaxRetry(2), retry.WithIfRetry(func(_ *retry.Context, err error) bool {
		return model.HasTag(err, model.ErrNet)
	}))
}

var metaRefreshRe = regexp.MustCompile(`(?i)<meta[^>]+http-equiv=["']?refresh["']?[^>]+content=["'][^"']*url=([^"'>]+)["']`)

// literal script assignment shapes seen on interstitial pages
var scriptRedirectRes = []*regexp.Regexp{
	regexp.MustCompile(`window\.location\.replace\(["']([^"']+)["']\)`),
	regexp.MustCompile(`window\.location\.href\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`document\.location\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`location\.replace\(["']([^"']+)["']\)`),
}

// Resolve walks an arbitrary input down to a canonical post id. Failure is
// soft: callers skip the input and keep the chain for diagnostics.
func (r *Resolver) Resolve(ctx context.Context, input string) *model.ResolveResult {
	var result = &model.ResolveResult{}
	var step = func(url, method string) {
		result.Chain = append(result.Chain, model.ResolveStep{
			Step:   len(result.Chain) + 1,
			Url:    url,
			Method: method,
		})
	}
	input = strings.TrimSpace(input)
	if ValidTargetId(input) {
		step(input, "direct")
		result.Success = true
		result.TargetId = input
		result.Method = "direct"
		return result
	}
	if id := ExtractIdFromUrl(input); id != "" {
		step(input, "direct")
		result.Success = true
		result.FinalUrl = input
		result.TargetId = id
		result.Method = "direct"
		return result
	}
	var current = input
	if !strings.HasPrefix(current, "http") {
		current = common.DefaultDesktopHost + "/" + strings.TrimPrefix(current, "/")
	}
	var done = func(id, method string) *model.ResolveResult {
		result.Success = true
		result.FinalUrl = current
		result.TargetId = id
		result.Method = method
		return result
	}
	for hop := 0; hop < r.opts.MaxHops; hop++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		page, err := r.fetch(ctx, current)
		if err != nil {
			step(current, "fetch-failed")
			r.logger.Debug("resolve fetch failed", zap.String("url", current), zap.Error(err))
			result.Err = err
			break
		}
		if page.Status >= 300 && page.Status <= 399 && page.Location != "" {
			next, err := absoluteUrl(current, page.Location)
			if err != nil {
				step(current, "bad-redirect")
				break
			}
			step(current, "redirect")
			if id := ExtractIdFromUrl(next); id != "" {
				current = next
				step(current, "redirect")
				return done(id, "redirect")
			}
			current = next
			continue
		}
		if m := metaRefreshRe.FindStringSubmatch(page.Body); m != nil {
			next, err := absoluteUrl(current, strings.TrimSpace(m[1]))
			if err == nil {
				step(current, "meta-refresh")
				if id := ExtractIdFromUrl(next); id != "" {
					current = next
					step(current, "meta-refresh")
					return done(id, "meta-refresh")
				}
				current = next
				continue
			}
		}
		if next := scriptRedirect(page.Body); next != "" {
			abs, err := absoluteUrl(current, next)
			if err == nil {
				step(current, "script-redirect")
				if id := ExtractIdFromUrl(abs); id != "" {
					current = abs
					step(current, "script-redirect")
					return done(id, "script-redirect")
				}
				current = abs
				continue
			}
		}
		step(current, "extract")
		if found := Extract(page.Body, 1); len(found) > 0 {
			return done(found[0].Id, "extract")
		}
		break
	}
	// alternate rendering surface, one shot
	if basic := basicUrl(current); basic != "" {
		page, err := r.fetch(ctx, basic)
		step(basic, "basic")
		if err == nil {
			if id := ExtractIdFromUrl(page.Location); id != "" {
				current = basic
				return done(id, "basic")
			}
			if found := Extract(page.Body, 1); len(found) > 0 {
				current = basic
				return done(found[0].Id, "basic")
			}
		} else if result.Err == nil {
			result.Err = err
		}
	}
	if result.Err == nil {
		result.Err = model.NewBase().WithTag(model.ErrResolveFailed).WithField("input", input)
	}
	return result
}

func scriptRedirect(body string) string {
	for _, re := range scriptRedirectRes {
		if m := re.FindStringSubmatch(body); m != nil {
			return strings.ReplaceAll(m[1], `\/`, `/`)
		}
	}
	return ""
}
func absoluteUrl(base, ref string) (string, error) {
	baseUrl, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refUrl, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseUrl.ResolveReference(refUrl).String(), nil
}
func basicUrl(current string) string {
	u, err := url.Parse(current)
	if err != nil || u.Host == "" {
		return ""
	}
	if strings.HasPrefix(common.DefaultBasicHost, "https://"+u.Host) {
		return ""
	}
	u.Scheme = "https"
	u.Host = strings.TrimPrefix(common.DefaultBasicHost, "https://")
	return u.String()
}
