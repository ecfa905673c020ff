// SPDX-License-Identifier: AGPL-3.0-or-later
// dsd-neo-p25sm - P25 trunking follower core
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package config

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// iniSection is the only section this format needs; the base spec's CLI
// surface is flat, so a single [p25] section round-trips every tunable.
const iniSection = "p25"

// sectionKeys lists, in a fixed order, every key persisted to and read from
// the INI text so render(parse(S)) reproduces the same byte-for-byte
// ordering regardless of map iteration order.
var sectionKeys = []string{
	"trunking", "conventional", "prefer_candidates", "lcw_retune", "lcw_0x44_retune",
	"vc_grace", "min_follow_dwell", "grant_voice_timeout", "retune_backoff",
	"mac_hold", "ring_hold", "cc_grace", "force_release_extra", "force_release_margin",
	"p1_err_hold_pct", "p1_err_hold_sec", "hangtime",
	"cc_hunt_interval", "p1_tail_ms", "p2_tail_ms",
	"enc_lockout", "tg_hold", "group_list_allow",
	"tune_data_calls", "tune_private_calls", "tune_enc_calls",
	"log_level", "data_dir", "log_file", "tuner", "rigctl_addr", "verbose",
	"metrics_enabled", "metrics_bind", "metrics_port",
	"pprof_enabled", "pprof_bind", "pprof_port",
	"redis_enabled", "redis_addr",
	"sdr_addr", "sdr_ppm", "sdr_agc",
}

// ParseINI parses a line-oriented "[section]\nkey = value" document into a
// Config. Unknown keys are ignored (forward compatibility); unknown sections
// other than [p25] are skipped.
func ParseINI(text string) (Config, error) {
	values := make(map[string]interface{}, len(sectionKeys))
	section := ""
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		if section != iniSection {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, fmt.Errorf("malformed INI line: %q", line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("failed to scan INI: %w", err)
	}

	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}
	decoded, err := decodeINIValues(values, cfg)
	if err != nil {
		return Config{}, err
	}
	return decoded, nil
}

// decodeINIValues maps the flat string values read from the file onto the
// typed Config fields, using mapstructure's weakly-typed decoding so "true"/
// "0.75"/"851000000" strings convert to bool/float64/uint32 without a manual
// per-field switch.
func decodeINIValues(values map[string]interface{}, base Config) (Config, error) {
	raw := map[string]interface{}{
		"Trunking":                        pick(values, "trunking", base.Trunking),
		"ConventionalScanning":            pick(values, "conventional", base.ConventionalScanning),
		"PreferCCCandidates":              pick(values, "prefer_candidates", base.PreferCCCandidates),
		"AllowLCWExplicitRetune":          pick(values, "lcw_retune", base.AllowLCWExplicitRetune),
		"AllowLCW0x44UnconditionalRetune": pick(values, "lcw_0x44_retune", base.AllowLCW0x44UnconditionalRetune),
		"VCGraceSeconds":                  pick(values, "vc_grace", base.VCGraceSeconds),
		"MinFollowDwellSeconds":           pick(values, "min_follow_dwell", base.MinFollowDwellSeconds),
		"GrantVoiceTimeoutSeconds":        pick(values, "grant_voice_timeout", base.GrantVoiceTimeoutSeconds),
		"RetuneBackoffSeconds":            pick(values, "retune_backoff", base.RetuneBackoffSeconds),
		"MACHoldSeconds":                  pick(values, "mac_hold", base.MACHoldSeconds),
		"RingHoldSeconds":                 pick(values, "ring_hold", base.RingHoldSeconds),
		"CCGraceSeconds":                  pick(values, "cc_grace", base.CCGraceSeconds),
		"ForceReleaseExtraSeconds":        pick(values, "force_release_extra", base.ForceReleaseExtraSeconds),
		"ForceReleaseMarginSeconds":       pick(values, "force_release_margin", base.ForceReleaseMarginSeconds),
		"P1ErrHoldPct":                    pick(values, "p1_err_hold_pct", base.P1ErrHoldPct),
		"P1ErrHoldSeconds":                pick(values, "p1_err_hold_sec", base.P1ErrHoldSeconds),
		"HangtimeSeconds":                 pick(values, "hangtime", base.HangtimeSeconds),
		"CCHuntIntervalSeconds":           pick(values, "cc_hunt_interval", base.CCHuntIntervalSeconds),
		"P1TailMillis":                    pick(values, "p1_tail_ms", base.P1TailMillis),
		"P2TailMillis":                    pick(values, "p2_tail_ms", base.P2TailMillis),
		"EncLockout":                      pick(values, "enc_lockout", base.EncLockout),
		"TGHold":                          pick(values, "tg_hold", base.TGHold),
		"GroupListAllowMode":              pick(values, "group_list_allow", base.GroupListAllowMode),
		"TrunkTuneDataCalls":              pick(values, "tune_data_calls", base.TrunkTuneDataCalls),
		"TrunkTunePrivateCalls":           pick(values, "tune_private_calls", base.TrunkTunePrivateCalls),
		"TrunkTuneEncCalls":               pick(values, "tune_enc_calls", base.TrunkTuneEncCalls),
		"LogLevel":                        pick(values, "log_level", string(base.LogLevel)),
		"DataDir":                         pick(values, "data_dir", base.DataDir),
		"LogFile":                         pick(values, "log_file", base.LogFile),
		"TunerKind":                       pick(values, "tuner", string(base.TunerKind)),
		"RigctlAddr":                      pick(values, "rigctl_addr", base.RigctlAddr),
		"Verbose":                         pick(values, "verbose", base.Verbose),
		"MetricsEnabled":                  pick(values, "metrics_enabled", base.MetricsEnabled),
		"MetricsBind":                     pick(values, "metrics_bind", base.MetricsBind),
		"MetricsPort":                     pick(values, "metrics_port", base.MetricsPort),
		"PProfEnabled":                    pick(values, "pprof_enabled", base.PProfEnabled),
		"PProfBind":                       pick(values, "pprof_bind", base.PProfBind),
		"PProfPort":                       pick(values, "pprof_port", base.PProfPort),
		"RedisEnabled":                    pick(values, "redis_enabled", base.RedisEnabled),
		"RedisAddr":                       pick(values, "redis_addr", base.RedisAddr),
		"SDRAddr":                         pick(values, "sdr_addr", base.SDRAddr),
		"SDRPPM":                          pick(values, "sdr_ppm", base.SDRPPM),
		"SDRAGC":                          pick(values, "sdr_agc", base.SDRAGC),
	}

	var out Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return Config{}, fmt.Errorf("failed to build INI decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("failed to decode INI values: %w", err)
	}
	return out, nil
}

func pick(values map[string]interface{}, key string, fallback interface{}) interface{} {
	if v, ok := values[key]; ok {
		return v
	}
	return fallback
}

// RenderINI renders cfg back to the canonical INI text. Calling
// ParseINI(RenderINI(cfg)) reproduces cfg field-for-field (base spec §8
// config round-trip property).
func RenderINI(cfg Config) string {
	fields := map[string]string{
		"trunking":             strconv.FormatBool(cfg.Trunking),
		"conventional":         strconv.FormatBool(cfg.ConventionalScanning),
		"prefer_candidates":    strconv.FormatBool(cfg.PreferCCCandidates),
		"lcw_retune":           strconv.FormatBool(cfg.AllowLCWExplicitRetune),
		"lcw_0x44_retune":      strconv.FormatBool(cfg.AllowLCW0x44UnconditionalRetune),
		"vc_grace":             formatFloat(cfg.VCGraceSeconds),
		"min_follow_dwell":     formatFloat(cfg.MinFollowDwellSeconds),
		"grant_voice_timeout":  formatFloat(cfg.GrantVoiceTimeoutSeconds),
		"retune_backoff":       formatFloat(cfg.RetuneBackoffSeconds),
		"mac_hold":             formatFloat(cfg.MACHoldSeconds),
		"ring_hold":            formatFloat(cfg.RingHoldSeconds),
		"cc_grace":             formatFloat(cfg.CCGraceSeconds),
		"force_release_extra":  formatFloat(cfg.ForceReleaseExtraSeconds),
		"force_release_margin": formatFloat(cfg.ForceReleaseMarginSeconds),
		"p1_err_hold_pct":      formatFloat(cfg.P1ErrHoldPct),
		"p1_err_hold_sec":      formatFloat(cfg.P1ErrHoldSeconds),
		"hangtime":             formatFloat(cfg.HangtimeSeconds),
		"cc_hunt_interval":     formatFloat(cfg.CCHuntIntervalSeconds),
		"p1_tail_ms":           formatFloat(cfg.P1TailMillis),
		"p2_tail_ms":           formatFloat(cfg.P2TailMillis),
		"enc_lockout":          strconv.FormatBool(cfg.EncLockout),
		"tg_hold":              strconv.FormatUint(uint64(cfg.TGHold), 10),
		"group_list_allow":     strconv.FormatBool(cfg.GroupListAllowMode),
		"tune_data_calls":      strconv.FormatBool(cfg.TrunkTuneDataCalls),
		"tune_private_calls":   strconv.FormatBool(cfg.TrunkTunePrivateCalls),
		"tune_enc_calls":       strconv.FormatBool(cfg.TrunkTuneEncCalls),
		"log_level":            string(cfg.LogLevel),
		"data_dir":             cfg.DataDir,
		"log_file":             cfg.LogFile,
		"tuner":                string(cfg.TunerKind),
		"rigctl_addr":          cfg.RigctlAddr,
		"verbose":              strconv.Itoa(cfg.Verbose),
		"metrics_enabled":      strconv.FormatBool(cfg.MetricsEnabled),
		"metrics_bind":         cfg.MetricsBind,
		"metrics_port":         strconv.FormatUint(uint64(cfg.MetricsPort), 10),
		"pprof_enabled":        strconv.FormatBool(cfg.PProfEnabled),
		"pprof_bind":           cfg.PProfBind,
		"pprof_port":           strconv.FormatUint(uint64(cfg.PProfPort), 10),
		"redis_enabled":        strconv.FormatBool(cfg.RedisEnabled),
		"redis_addr":           cfg.RedisAddr,
		"sdr_addr":             cfg.SDRAddr,
		"sdr_ppm":              strconv.Itoa(cfg.SDRPPM),
		"sdr_agc":              strconv.FormatBool(cfg.SDRAGC),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", iniSection)
	for _, k := range sectionKeys {
		fmt.Fprintf(&b, "%s = %s\n", k, fields[k])
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
