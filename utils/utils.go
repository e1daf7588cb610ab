package utils

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/xid"
)

const AppName = "shopee-affiliate"

var DefaultFixBackoffDuration = time.Millisecond * 100

type BackoffFunc func(int64) time.Duration

func FixedDuration(dur time.Duration) BackoffFunc {
	return func(i int64) time.Duration {
		return dur
	}
}
func RandomDuration(max time.Duration) BackoffFunc {
	return func(i int64) time.Duration {
		return time.Duration(rand.Int63n(int64(max)))
	}
}
func DefaultBackoffDuration(interval time.Duration, maxDur time.Duration) BackoffFunc {
	const _max int64 = 62
	if interval <= 0 {
		interval = 1
	}
	var maxBackoffN = _max - int64(math.Floor(math.Log2(float64(interval))))
	return func(i int64) time.Duration {
		if i > maxBackoffN {
			i = maxBackoffN
		}
		var dur = interval << i
		if maxDur > 0 && dur > maxDur {
			dur = maxDur
		}
		return dur
	}
}

// Rand wraps a seedable source so that every jitter, sampling and injection
// decision in the engine can be made reproducible under test.
type Rand struct {
	lck sync.Mutex
	r   *rand.Rand
}

func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}
func NewTimeRand() *Rand {
	return NewRand(time.Now().UnixNano())
}
func (r *Rand) Float64() float64 {
	r.lck.Lock()
	defer r.lck.Unlock()
	return r.r.Float64()
}
func (r *Rand) IntN(n int) int {
	r.lck.Lock()
	defer r.lck.Unlock()
	if n <= 0 {
		return 0
	}
	return r.r.Intn(n)
}
func (r *Rand) IntBetween(min, max int64) int64 {
	if min < 0 || max < min {
		return 0
	}
	r.lck.Lock()
	defer r.lck.Unlock()
	return min + r.r.Int63n(max-min+1)
}
func (r *Rand) DurationBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return time.Duration(r.IntBetween(int64(min), int64(max)))
}

func UUID() (string, error) {
	u, err := DefaultUUID()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(u, "-", ""), nil
}
func DefaultUUID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
func MustDefaultUUID() string {
	u, err := DefaultUUID()
	if err != nil {
		panic(err)
	}
	return u
}
func NewXid() string {
	return xid.New().String()
}

func RandString(r *Rand, length int) string {
	sb := strings.Builder{}
	baseStr := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for i := 0; i < length; i++ {
		sb.WriteByte(baseStr[r.IntN(len(baseStr))])
	}
	return sb.String()
}
func RandDigestString(r *Rand, length int) string {
	sb := strings.Builder{}
	baseStr := "0123456789"
	sb.WriteByte(baseStr[1+r.IntN(len(baseStr)-1)])
	for i := 0; i < length-1; i++ {
		sb.WriteByte(baseStr[r.IntN(len(baseStr))])
	}
	return sb.String()
}

func TextBetween(source, left, right string) string {
	if source == "" || left == "" || right == "" {
		return ""
	}
	var leftIndex = strings.Index(source, left)
	if leftIndex == -1 {
		return ""
	}
	var rightIndex = strings.Index(source[leftIndex+len(left):], right)
	if rightIndex == -1 {
		return ""
	}
	return source[leftIndex+len(left) : leftIndex+len(left)+rightIndex]
}

func StringHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

func GetDefaultLogDir() string {
	var logDir string
	switch runtime.GOOS {
	default:
		logDir = "."
	case "windows":
		home, err := os.UserHomeDir()
		if err != nil {
			logDir = "."
		} else {
			logDir = filepath.Join(home, "."+AppName, "logs")
		}
	case "linux", "darwin":
		logDir = filepath.Join("/var/log", AppName)
	}
	if logDir == "." {
		logDir = filepath.Join(".", "logs", AppName)
	}
	return logDir
}
