package config

import "strings"

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func normalizeDatabaseConfig(db DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	for _, field := range []*string{&db.DSN, &db.Host, &db.User, &db.Password, &db.Name, &db.Path, &db.Charset, &db.Loc} {
		*field = strings.TrimSpace(*field)
	}
	db.Driver = orDefault(strings.ToLower(strings.TrimSpace(db.Driver)), defaultDBDriver)
	db.Host = orDefault(db.Host, defaultDBHost)
	db.Port = orDefault(db.Port, defaultDBPort)
	db.User = orDefault(db.User, defaultDBUser)
	db.Name = orDefault(db.Name, defaultDBName)
	db.Path = orDefault(db.Path, defaultDBPath)
	db.Charset = orDefault(db.Charset, defaultDBCharset)
	db.Loc = orDefault(db.Loc, defaultDBLoc)
	db.Params = cleanParams(db.Params)
	return db
}

// normalizeRedisConfig adds the redis:// scheme to bare URLs such as
// "cache:6379"; host and port defaults only matter when URL is empty.
func normalizeRedisConfig(rc RedisRuntimeConfig) RedisRuntimeConfig {
	rc.URL = strings.TrimSpace(rc.URL)
	if rc.URL != "" && !strings.HasPrefix(rc.URL, "redis://") && !strings.HasPrefix(rc.URL, "rediss://") {
		rc.URL = "redis://" + rc.URL
	}
	rc.Host = strings.TrimSpace(rc.Host)
	rc.Password = strings.TrimSpace(rc.Password)
	if rc.URL == "" {
		rc.Host = orDefault(rc.Host, defaultRedisHost)
	}
	rc.Port = orDefault(rc.Port, defaultRedisPort)
	return rc
}

func normalizeMarkdownConfig(md MarkdownConfig) MarkdownConfig {
	md.APIURL = orDefault(strings.TrimSpace(md.APIURL), defaultMarkdownAPI)
	md.Timeout = orDefault(md.Timeout, defaultMarkdownTimeout)
	return md
}

// normalizeOrigins trims entries and drops blanks.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func lowerOr(v, def string) string {
	return orDefault(strings.ToLower(strings.TrimSpace(v)), def)
}

// cleanParams copies extra DSN parameters, dropping blank keys and values.
func cleanParams(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
