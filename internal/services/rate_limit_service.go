package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vartikaresort/funpark-backend/internal/database"
)

// Limit allows Max OTP sends per Window
type Limit struct {
	Max    int
	Window time.Duration
}

// RateLimitConfig limits OTP sends per email address and per client IP
type RateLimitConfig struct {
	PerEmail Limit
	PerIP    Limit
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		PerEmail: Limit{Max: 3, Window: 10 * time.Minute},
		PerIP:    Limit{Max: 10, Window: time.Hour},
	}
}

// RateLimitError is returned when a sender is over its limit
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // email or ip
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// OTPThrottle keeps a log of OTP sends in otp_rate_limits and refuses new
// ones once an email or IP has used up its window
type OTPThrottle struct {
	db     database.DB
	config RateLimitConfig
	now    func() time.Time
}

func NewOTPThrottle(db database.DB, config RateLimitConfig) *OTPThrottle {
	return &OTPThrottle{db: db, config: config, now: time.Now}
}

type throttleKey struct {
	kind  string
	value string
	limit Limit
	label string
}

func (t *OTPThrottle) keys(email, ip string) []throttleKey {
	var keys []throttleKey
	if email != "" {
		keys = append(keys, throttleKey{"email", email, t.config.PerEmail, "this email"})
	}
	if ip != "" {
		keys = append(keys, throttleKey{"ip", ip, t.config.PerIP, "this IP address"})
	}
	return keys
}

// Check returns a *RateLimitError if either the email or the IP may not be
// sent another OTP yet. Empty values are not checked.
func (t *OTPThrottle) Check(email, ip string) error {
	for _, key := range t.keys(email, ip) {
		count, oldest, err := t.sentSince(key, t.now().Add(-key.limit.Window))
		if err != nil {
			return fmt.Errorf("failed to check %s rate limit: %w", key.kind, err)
		}
		if count < key.limit.Max {
			continue
		}

		retryAfter := oldest.Add(key.limit.Window)
		return &RateLimitError{
			Message:    fmt.Sprintf("Too many OTP requests for %s. Please try again after %s", key.label, retryAfter.Format("15:04:05")),
			RetryAfter: retryAfter,
			Type:       key.kind,
		}
	}
	return nil
}

// sentSince counts sends after since and returns the oldest of them; the
// window reopens when that one ages out
func (t *OTPThrottle) sentSince(key throttleKey, since time.Time) (int, time.Time, error) {
	var (
		count  int
		oldest sql.NullTime
	)
	err := t.db.QueryRow(`
		SELECT COUNT(*), MIN(created_at)
		FROM otp_rate_limits
		WHERE identifier = $1 AND identifier_type = $2 AND created_at > $3`,
		key.value, key.kind, since,
	).Scan(&count, &oldest)
	if err != nil {
		return 0, time.Time{}, err
	}
	if !oldest.Valid {
		oldest.Time = t.now()
	}
	return count, oldest.Time, nil
}

// Record logs one send against the email and the IP
func (t *OTPThrottle) Record(email, ip string) error {
	keys := t.keys(email, ip)
	if len(keys) == 0 {
		return nil
	}

	rows := make([]string, 0, len(keys))
	args := make([]interface{}, 0, 2*len(keys))
	for i, key := range keys {
		rows = append(rows, fmt.Sprintf("($%d, $%d)", 2*i+1, 2*i+2))
		args = append(args, key.value, key.kind)
	}

	query := `INSERT INTO otp_rate_limits (identifier, identifier_type) VALUES ` + strings.Join(rows, ", ")
	if _, err := t.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to record OTP send: %w", err)
	}
	return nil
}

// Prune deletes sends that no window can see any more
func (t *OTPThrottle) Prune() (int64, error) {
	window := t.config.PerIP.Window
	if t.config.PerEmail.Window > window {
		window = t.config.PerEmail.Window
	}

	result, err := t.db.Exec(`DELETE FROM otp_rate_limits WHERE created_at < $1`, t.now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("failed to prune rate limits: %w", err)
	}
	return result.RowsAffected()
}
