package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noted-space/noted/internal/config"
	jwtpkg "github.com/noted-space/noted/internal/pkg/jwt"
	"go.uber.org/zap"
)

// applyRuntimeSettings installs process-wide settings from cfg: the token
// secret and the local timezone.
func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) error {
	switch secret := strings.TrimSpace(cfg.JWTSecret); {
	case secret != "":
		jwtpkg.SetSecret(secret)
	case !cfg.IsTest():
		logger.Warn("jwt_secret is empty, tokens are signed with the built-in secret")
	}

	if strings.TrimSpace(cfg.Timezone) == "" {
		return nil
	}
	loc, err := parseTimezoneLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	time.Local = loc
	return nil
}

var utcOffset = regexp.MustCompile(`^([+-])([01]\d|2[0-3]):([0-5]\d)$`)

// parseTimezoneLocation accepts an IANA zone name or a fixed "+HH:MM" offset.
func parseTimezoneLocation(raw string) (*time.Location, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return time.Local, nil
	}
	if m := utcOffset.FindStringSubmatch(tz); m != nil {
		h, _ := strconv.Atoi(m[2])
		mins, _ := strconv.Atoi(m[3])
		offset := (h*60 + mins) * 60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone(tz, offset), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("want an IANA zone like Europe/Moscow or an offset like +03:00: %w", err)
	}
	return loc, nil
}
