package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Mail      MailConfig      `mapstructure:"mail" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the SQL backend. Postgres is the production backend,
	// sqlite is meant for local development.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required"`
}

// MailConfig contains outbound mail settings. An empty Host selects the
// logging transport, which never contacts a mail server.
type MailConfig struct {
	Host     string `mapstructure:"host" validate:"omitempty,hostname|ip"`
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required,email"`
	AppURL   string `mapstructure:"app_url" validate:"required,url"`
	// TimeoutSeconds bounds a single SMTP delivery.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gt=0"`
}

// SchedulerConfig controls the notification trigger source and the
// eligibility windows used by the notification engine.
type SchedulerConfig struct {
	Enabled                  bool `mapstructure:"enabled"`
	IntervalMinutes          int  `mapstructure:"interval_minutes" validate:"gt=0"`
	ReminderLookaheadMinutes int  `mapstructure:"reminder_lookahead_minutes" validate:"gte=0"`
	DigestHour               int  `mapstructure:"digest_hour" validate:"gte=0,lte=23"`
	DigestMinute             int  `mapstructure:"digest_minute" validate:"gte=0,lte=59"`
	DigestLookaheadDays      int  `mapstructure:"digest_lookahead_days" validate:"gt=0"`
	DigestUpcomingLimit      int  `mapstructure:"digest_upcoming_limit" validate:"gt=0"`
	ReminderGraceSeconds     int  `mapstructure:"reminder_grace_seconds" validate:"gte=0"`
	DigestGraceSeconds       int  `mapstructure:"digest_grace_seconds" validate:"gte=0"`
	DeliveryConcurrency      int  `mapstructure:"delivery_concurrency" validate:"gt=0"`
}

// Interval returns the short tick period.
func (c SchedulerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ReminderLookahead returns how far ahead of a due time a reminder may fire.
func (c SchedulerConfig) ReminderLookahead() time.Duration {
	return time.Duration(c.ReminderLookaheadMinutes) * time.Minute
}

// ReminderGrace returns the misfire grace window of the interval job.
func (c SchedulerConfig) ReminderGrace() time.Duration {
	return time.Duration(c.ReminderGraceSeconds) * time.Second
}

// DigestGrace returns the misfire grace window of the daily job.
func (c SchedulerConfig) DigestGrace() time.Duration {
	return time.Duration(c.DigestGraceSeconds) * time.Second
}
