package security

import "time"

type Report struct {
	ProductionMode      bool
	Tiers               []string
	RedisEnabled        bool
	RedisDisabledReason string
	SQLEnabled          bool
	FallbackOnly        bool
	SessionCapActive    bool
	MaxSessionsPerUser  int
	SessionTimeout      time.Duration
	MaxAge              time.Duration
	MaxIdle             time.Duration
	BackendCallTimeout  time.Duration
	ReaperActive        bool
	AuditActive         bool
	RedisAuthenticated  bool
	RedisEncrypted      bool
	RedisStrongSecret   bool
}

type ReportInput struct {
	ProductionMode      bool
	Tiers               []string
	RedisConfigured     bool
	RedisCheck          *RedisCheck
	RedisDisabledReason string
	SQLConfigured       bool
	MaxSessionsPerUser  int
	SessionTimeout      time.Duration
	MaxAge              time.Duration
	MaxIdle             time.Duration
	BackendCallTimeout  time.Duration
	ReaperEnabled       bool
	AuditEnabled        bool
}

func BuildReport(input ReportInput) Report {
	redisEnabled := input.RedisConfigured && input.RedisDisabledReason == ""

	r := Report{
		ProductionMode:      input.ProductionMode,
		Tiers:               append([]string(nil), input.Tiers...),
		RedisEnabled:        redisEnabled,
		RedisDisabledReason: input.RedisDisabledReason,
		SQLEnabled:          input.SQLConfigured,
		FallbackOnly:        !redisEnabled && !input.SQLConfigured,
		SessionCapActive:    input.MaxSessionsPerUser > 0,
		MaxSessionsPerUser:  input.MaxSessionsPerUser,
		SessionTimeout:      input.SessionTimeout,
		MaxAge:              input.MaxAge,
		MaxIdle:             input.MaxIdle,
		BackendCallTimeout:  input.BackendCallTimeout,
		ReaperActive:        input.ReaperEnabled,
		AuditActive:         input.AuditEnabled,
	}
	if input.RedisCheck != nil {
		r.RedisAuthenticated = input.RedisCheck.Authenticated
		r.RedisEncrypted = input.RedisCheck.Encrypted
		r.RedisStrongSecret = input.RedisCheck.StrongSecret
	}
	return r
}
