// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

// Package config resolves the P25 follower's tunables with CLI > env >
// default precedence (base spec §6) and validates them (base spec §7,
// "missing mandatory INI field" / fatal configuration errors).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/USA-RedDragon/configulator"
	"github.com/spf13/pflag"
)

// Config holds every P25 SM tunable plus the ambient (logging, tuner,
// persistence) settings. Field names match the base spec's SmContext.config
// member names where applicable (hangtime_s, grant_timeout_s, ...).
type Config struct {
	Trunking                        bool `env:"DSD_NEO_P25_TRUNKING" default:"false"`
	ConventionalScanning             bool `env:"DSD_NEO_P25_CONVENTIONAL" default:"false"`
	PreferCCCandidates               bool `env:"DSD_NEO_P25_PREFER_CANDIDATES" default:"false"`
	AllowLCWExplicitRetune           bool `env:"DSD_NEO_P25_LCW_RETUNE" default:"false"`
	AllowLCW0x44UnconditionalRetune  bool `env:"DSD_NEO_P25_LCW_0X44_RETUNE" default:"false"`

	VCGraceSeconds            float64 `env:"DSD_NEO_P25_VC_GRACE" default:"0.75"`
	MinFollowDwellSeconds     float64 `env:"DSD_NEO_P25_MIN_FOLLOW_DWELL" default:"0.7"`
	GrantVoiceTimeoutSeconds  float64 `env:"DSD_NEO_P25_GRANT_VOICE_TIMEOUT" default:"4.0"`
	RetuneBackoffSeconds      float64 `env:"DSD_NEO_P25_RETUNE_BACKOFF" default:"1.0"`
	MACHoldSeconds            float64 `env:"DSD_NEO_P25_MAC_HOLD" default:"0.75"`
	RingHoldSeconds           float64 `env:"DSD_NEO_P25_RING_HOLD" default:"0.75"`
	CCGraceSeconds            float64 `env:"DSD_NEO_P25_CC_GRACE" default:"2.0"`
	ForceReleaseExtraSeconds  float64 `env:"DSD_NEO_P25_FORCE_RELEASE_EXTRA" default:"0.5"`
	ForceReleaseMarginSeconds float64 `env:"DSD_NEO_P25_FORCE_RELEASE_MARGIN" default:"0.25"`
	P1ErrHoldPct              float64 `env:"DSD_NEO_P25_P1_ERR_HOLD_PCT" default:"8.0"`
	P1ErrHoldSeconds          float64 `env:"DSD_NEO_P25_P1_ERR_HOLD_SEC" default:"2.0"`
	HangtimeSeconds           float64 `env:"DSD_NEO_P25_HANGTIME" default:"0.75"`

	// CCHuntIntervalSeconds and the tail-drain windows are not directly
	// CLI-exposed (base spec §6 lists only the knobs above) but are still
	// part of SmContext.config; they carry fixed defaults from base spec §4.4.
	CCHuntIntervalSeconds float64 `default:"2.0"`
	P1TailMillis          float64 `default:"120"`
	P2TailMillis          float64 `default:"180"`

	EncLockout         bool   `env:"DSD_NEO_P25_ENC_LOCKOUT" default:"true"`
	TGHold             uint32 `env:"DSD_NEO_P25_TG_HOLD" default:"0"`
	GroupListAllowMode bool   `env:"DSD_NEO_P25_GROUP_LIST_ALLOW" default:"false"`

	TrunkTuneDataCalls    bool `env:"DSD_NEO_P25_TUNE_DATA_CALLS" default:"false"`
	TrunkTunePrivateCalls bool `env:"DSD_NEO_P25_TUNE_PRIVATE_CALLS" default:"true"`
	TrunkTuneEncCalls     bool `env:"DSD_NEO_P25_TUNE_ENC_CALLS" default:"false"`

	LogLevel LogLevel `env:"DSD_NEO_P25_LOG_LEVEL" default:"info"`
	DataDir  string   `env:"DSD_NEO_P25_DATA_DIR" default:""`
	LogFile  string   `env:"DSD_NEO_P25_LOG_FILE" default:""`

	// RedisEnabled switches the candidate-cache/lockout-table persistence
	// backend from the per-user data-directory text files to a shared Redis
	// instance, for deployments running more than one follower process
	// against the same system (base spec §4.2 "persist"/"load").
	RedisEnabled bool   `env:"DSD_NEO_P25_REDIS_ENABLED" default:"false"`
	RedisAddr    string `env:"DSD_NEO_P25_REDIS_ADDR" default:"127.0.0.1:6379"`

	TunerKind  TunerKind `env:"DSD_NEO_P25_TUNER" default:"noop"`
	RigctlAddr string    `env:"DSD_NEO_P25_RIGCTL_ADDR" default:"127.0.0.1:4532"`

	SDRAddr string `env:"DSD_NEO_P25_SDR_ADDR" default:"127.0.0.1:1234"`
	SDRPPM  int    `env:"DSD_NEO_P25_SDR_PPM" default:"0"`
	SDRAGC  bool   `env:"DSD_NEO_P25_SDR_AGC" default:"true"`

	Verbose int `env:"DSD_NEO_P25_VERBOSE" default:"0"`

	MetricsEnabled bool   `env:"DSD_NEO_P25_METRICS_ENABLED" default:"false"`
	MetricsBind    string `env:"DSD_NEO_P25_METRICS_BIND" default:"127.0.0.1"`
	MetricsPort    uint16 `env:"DSD_NEO_P25_METRICS_PORT" default:"9125"`

	PProfEnabled bool   `env:"DSD_NEO_P25_PPROF_ENABLED" default:"false"`
	PProfBind    string `env:"DSD_NEO_P25_PPROF_BIND" default:"127.0.0.1"`
	PProfPort    uint16 `env:"DSD_NEO_P25_PPROF_PORT" default:"9126"`

	// encFollowFlag holds the parsed --enc-follow value, applied in Resolve
	// after CLI/env merging so it can override EncLockout last.
	encFollowFlag *bool
}

// Flags registers the CLI surface from base spec §6 onto fs. Each flag's
// default is the Config zero-value default; actual precedence (CLI > env >
// default) is applied later in Resolve.
func Flags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.Trunking, "trunking", "T", cfg.Trunking, "enable trunking")
	fs.BoolVarP(&cfg.ConventionalScanning, "conventional", "Y", cfg.ConventionalScanning, "conventional scanning (disables trunking)")
	fs.BoolVarP(&cfg.PreferCCCandidates, "prefer-candidates", "^", cfg.PreferCCCandidates, "prefer CC candidates during hunt")
	fs.BoolVarP(&cfg.AllowLCWExplicitRetune, "lcw-retune", "j", cfg.AllowLCWExplicitRetune, "enable optional retune from LCW explicit update")

	fs.Float64Var(&cfg.VCGraceSeconds, "p25-vc-grace", cfg.VCGraceSeconds, "minimum dwell before VC to CC return eligible")
	fs.Float64Var(&cfg.MinFollowDwellSeconds, "p25-min-follow-dwell", cfg.MinFollowDwellSeconds, "minimum follow dwell seconds")
	fs.Float64Var(&cfg.GrantVoiceTimeoutSeconds, "p25-grant-voice-timeout", cfg.GrantVoiceTimeoutSeconds, "seconds to wait for voice after a grant")
	fs.Float64Var(&cfg.RetuneBackoffSeconds, "p25-retune-backoff", cfg.RetuneBackoffSeconds, "backoff window for a dead grant's (freq,slot)")
	fs.Float64Var(&cfg.MACHoldSeconds, "p25-mac-hold", cfg.MACHoldSeconds, "seconds stale MAC activity still counts as active")
	fs.Float64Var(&cfg.RingHoldSeconds, "p25-ring-hold", cfg.RingHoldSeconds, "seconds queued audio still counts as active")
	fs.Float64Var(&cfg.CCGraceSeconds, "p25-cc-grace", cfg.CCGraceSeconds, "seconds without CC_SYNC before hunting")
	fs.Float64Var(&cfg.ForceReleaseExtraSeconds, "p25-force-release-extra", cfg.ForceReleaseExtraSeconds, "extra seconds added to hard safety-net cutoffs")
	fs.Float64Var(&cfg.ForceReleaseMarginSeconds, "p25-force-release-margin", cfg.ForceReleaseMarginSeconds, "margin seconds added to hard safety-net cutoffs")
	fs.Float64Var(&cfg.P1ErrHoldPct, "p25-p1-err-hold-pct", cfg.P1ErrHoldPct, "IMBE error pct that triggers Phase 1 hangtime extension")
	fs.Float64Var(&cfg.P1ErrHoldSeconds, "p25-p1-err-hold-sec", cfg.P1ErrHoldSeconds, "Phase 1 hangtime extension seconds")

	fs.BoolVar(&cfg.EncLockout, "enc-lockout", cfg.EncLockout, "lock out encrypted talkgroups (opposite of --enc-follow)")
	fs.Uint32VarP(&cfg.TGHold, "tg-hold", "I", cfg.TGHold, "hold on a single talkgroup")
	fs.BoolVarP(&cfg.GroupListAllowMode, "group-list-allow", "W", cfg.GroupListAllowMode, "treat group list as an allow list")

	fs.Float64VarP(&cfg.HangtimeSeconds, "hangtime", "t", cfg.HangtimeSeconds, "hangtime seconds")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "increase log verbosity (repeatable)")
	fs.BoolVar(&cfg.MetricsEnabled, "metrics", cfg.MetricsEnabled, "serve Prometheus metrics")
	fs.StringVar(&cfg.MetricsBind, "metrics-bind", cfg.MetricsBind, "metrics server bind address")
	fs.Uint16Var(&cfg.MetricsPort, "metrics-port", cfg.MetricsPort, "metrics server port")

	fs.BoolVar(&cfg.RedisEnabled, "redis", cfg.RedisEnabled, "persist candidate cache and lockout table to Redis instead of local files")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis host:port")

	fs.BoolVar(&cfg.PProfEnabled, "pprof", cfg.PProfEnabled, "serve Go runtime profiler endpoints")
	fs.StringVar(&cfg.PProfBind, "pprof-bind", cfg.PProfBind, "pprof server bind address")
	fs.Uint16Var(&cfg.PProfPort, "pprof-port", cfg.PProfPort, "pprof server port")

	follow := false
	fs.BoolVar(&follow, "enc-follow", false, "follow encrypted talkgroups (opposite of --enc-lockout)")
	cfg.encFollowFlag = &follow
}

// Default returns the built-in defaults, sourced from configulator so the
// struct-tag defaults above are the single source of truth.
func Default() (Config, error) {
	cfg, err := configulator.New[Config]().Default()
	if err != nil {
		return Config{}, fmt.Errorf("failed to compute default config: %w", err)
	}
	return cfg, nil
}

// Resolve applies CLI > env > default precedence: start from defaults, layer
// environment overrides, then layer explicit CLI flags (fs.Changed reports
// which flags the user actually set).
func Resolve(fs *pflag.FlagSet, cli Config) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if fs != nil {
		mergeCLIOverrides(fs, &cfg, cli)
	} else {
		cfg = cli
	}

	if cfg.encFollowFlag != nil && *cfg.encFollowFlag {
		cfg.EncLockout = false
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := boolEnv("DSD_NEO_P25_TRUNKING"); ok {
		cfg.Trunking = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_CONVENTIONAL"); ok {
		cfg.ConventionalScanning = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_PREFER_CANDIDATES"); ok {
		cfg.PreferCCCandidates = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_LCW_RETUNE"); ok {
		cfg.AllowLCWExplicitRetune = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_LCW_0X44_RETUNE"); ok {
		cfg.AllowLCW0x44UnconditionalRetune = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_VC_GRACE"); ok {
		cfg.VCGraceSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_MIN_FOLLOW_DWELL"); ok {
		cfg.MinFollowDwellSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_GRANT_VOICE_TIMEOUT"); ok {
		cfg.GrantVoiceTimeoutSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_RETUNE_BACKOFF"); ok {
		cfg.RetuneBackoffSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_MAC_HOLD"); ok {
		cfg.MACHoldSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_RING_HOLD"); ok {
		cfg.RingHoldSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_CC_GRACE"); ok {
		cfg.CCGraceSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_FORCE_RELEASE_EXTRA"); ok {
		cfg.ForceReleaseExtraSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_FORCE_RELEASE_MARGIN"); ok {
		cfg.ForceReleaseMarginSeconds = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_P1_ERR_HOLD_PCT"); ok {
		cfg.P1ErrHoldPct = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_P1_ERR_HOLD_SEC"); ok {
		cfg.P1ErrHoldSeconds = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_ENC_LOCKOUT"); ok {
		cfg.EncLockout = v
	}
	if v, ok := uintEnv("DSD_NEO_P25_TG_HOLD"); ok {
		cfg.TGHold = uint32(v)
	}
	if v, ok := boolEnv("DSD_NEO_P25_GROUP_LIST_ALLOW"); ok {
		cfg.GroupListAllowMode = v
	}
	if v, ok := floatEnv("DSD_NEO_P25_HANGTIME"); ok {
		cfg.HangtimeSeconds = v
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_LOG_LEVEL"); ok {
		cfg.LogLevel = LogLevel(v)
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_TUNER"); ok {
		cfg.TunerKind = TunerKind(v)
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_RIGCTL_ADDR"); ok {
		cfg.RigctlAddr = v
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_SDR_ADDR"); ok {
		cfg.SDRAddr = v
	}
	if v, ok := intEnv("DSD_NEO_P25_SDR_PPM"); ok {
		cfg.SDRPPM = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_SDR_AGC"); ok {
		cfg.SDRAGC = v
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_REDIS_ENABLED"); ok {
		cfg.RedisEnabled = v
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_TUNE_DATA_CALLS"); ok {
		cfg.TrunkTuneDataCalls = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_TUNE_PRIVATE_CALLS"); ok {
		cfg.TrunkTunePrivateCalls = v
	}
	if v, ok := boolEnv("DSD_NEO_P25_TUNE_ENC_CALLS"); ok {
		cfg.TrunkTuneEncCalls = v
	}
	if v, ok := uintEnv("DSD_NEO_P25_VERBOSE"); ok {
		cfg.Verbose = int(v)
	}
	if v, ok := boolEnv("DSD_NEO_P25_METRICS_ENABLED"); ok {
		cfg.MetricsEnabled = v
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_METRICS_BIND"); ok {
		cfg.MetricsBind = v
	}
	if v, ok := uintEnv("DSD_NEO_P25_METRICS_PORT"); ok {
		cfg.MetricsPort = uint16(v)
	}
	if v, ok := boolEnv("DSD_NEO_P25_PPROF_ENABLED"); ok {
		cfg.PProfEnabled = v
	}
	if v, ok := os.LookupEnv("DSD_NEO_P25_PPROF_BIND"); ok {
		cfg.PProfBind = v
	}
	if v, ok := uintEnv("DSD_NEO_P25_PPROF_PORT"); ok {
		cfg.PProfPort = uint16(v)
	}
}

// mergeCLIOverrides copies any flag the user explicitly set on fs from cli
// into cfg, leaving env/default values in place for unset flags.
func mergeCLIOverrides(fs *pflag.FlagSet, cfg *Config, cli Config) {
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("trunking") {
		cfg.Trunking = cli.Trunking
	}
	if changed("conventional") {
		cfg.ConventionalScanning = cli.ConventionalScanning
	}
	if changed("prefer-candidates") {
		cfg.PreferCCCandidates = cli.PreferCCCandidates
	}
	if changed("lcw-retune") {
		cfg.AllowLCWExplicitRetune = cli.AllowLCWExplicitRetune
	}
	if changed("p25-vc-grace") {
		cfg.VCGraceSeconds = cli.VCGraceSeconds
	}
	if changed("p25-min-follow-dwell") {
		cfg.MinFollowDwellSeconds = cli.MinFollowDwellSeconds
	}
	if changed("p25-grant-voice-timeout") {
		cfg.GrantVoiceTimeoutSeconds = cli.GrantVoiceTimeoutSeconds
	}
	if changed("p25-retune-backoff") {
		cfg.RetuneBackoffSeconds = cli.RetuneBackoffSeconds
	}
	if changed("p25-mac-hold") {
		cfg.MACHoldSeconds = cli.MACHoldSeconds
	}
	if changed("p25-ring-hold") {
		cfg.RingHoldSeconds = cli.RingHoldSeconds
	}
	if changed("p25-cc-grace") {
		cfg.CCGraceSeconds = cli.CCGraceSeconds
	}
	if changed("p25-force-release-extra") {
		cfg.ForceReleaseExtraSeconds = cli.ForceReleaseExtraSeconds
	}
	if changed("p25-force-release-margin") {
		cfg.ForceReleaseMarginSeconds = cli.ForceReleaseMarginSeconds
	}
	if changed("p25-p1-err-hold-pct") {
		cfg.P1ErrHoldPct = cli.P1ErrHoldPct
	}
	if changed("p25-p1-err-hold-sec") {
		cfg.P1ErrHoldSeconds = cli.P1ErrHoldSeconds
	}
	if changed("enc-lockout") {
		cfg.EncLockout = cli.EncLockout
	}
	if changed("tg-hold") {
		cfg.TGHold = cli.TGHold
	}
	if changed("group-list-allow") {
		cfg.GroupListAllowMode = cli.GroupListAllowMode
	}
	if changed("hangtime") {
		cfg.HangtimeSeconds = cli.HangtimeSeconds
	}
	if changed("verbose") {
		cfg.Verbose = cli.Verbose
	}
	if changed("metrics") {
		cfg.MetricsEnabled = cli.MetricsEnabled
	}
	if changed("metrics-bind") {
		cfg.MetricsBind = cli.MetricsBind
	}
	if changed("metrics-port") {
		cfg.MetricsPort = cli.MetricsPort
	}
	if changed("redis") {
		cfg.RedisEnabled = cli.RedisEnabled
	}
	if changed("redis-addr") {
		cfg.RedisAddr = cli.RedisAddr
	}
	if changed("pprof") {
		cfg.PProfEnabled = cli.PProfEnabled
	}
	if changed("pprof-bind") {
		cfg.PProfBind = cli.PProfBind
	}
	if changed("pprof-port") {
		cfg.PProfPort = cli.PProfPort
	}
	cfg.encFollowFlag = cli.encFollowFlag
}

func boolEnv(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func floatEnv(name string) (float64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func intEnv(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func uintEnv(name string) (uint64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return 0, false
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return u, true
}
