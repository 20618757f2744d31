package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/apis/cache"
)

var (
	defaultCacheDuration = time.Hour
)

// getReportFromCacheOrGenerate attempts to find a cached record otherwise generates a new report.
// Results are only written back when generation produced no errors.
func getReportFromCacheOrGenerate[T any](ctx context.Context, c cache.Cache, cacheOptions cache.RequestOptions, cacheKey interface{}, generateFn func() (T, []error), defaultVal T) (T, []error) {
	// If someone is giving us an uncacheable cacheKey, we should panic so it gets detected in testing
	if isStructWithNoPublicFields(cacheKey) {
		panic(fmt.Sprintf("you cannot use struct %s with no exported fields as a cache key", reflect.TypeOf(cacheKey)))
	} else if cacheKey == "" {
		panic(fmt.Sprintf("you cannot use empty string as a cache key for %s", reflect.TypeOf(defaultVal)))
	} else if cacheKey == nil {
		panic(fmt.Sprintf("cache key is nil for %s", reflect.TypeOf(defaultVal)))
	}

	if c == nil {
		return generateFn()
	}

	jsonCacheKey, err := json.Marshal(cacheKey)
	if err != nil {
		return defaultVal, []error{err}
	}

	if !cacheOptions.ForceRefresh {
		if res, err := c.Get(ctx, string(jsonCacheKey)); err == nil {
			log.WithFields(log.Fields{
				"key":  string(jsonCacheKey),
				"type": reflect.TypeOf(defaultVal).String(),
			}).Debugf("cache hit")
			var cr T
			if err := json.Unmarshal(res, &cr); err == nil {
				return cr, nil
			}
			log.WithError(err).Warningf("discarding undecodable cache entry %s", string(jsonCacheKey))
		} else {
			log.Infof("cache miss for cache key: %s", string(jsonCacheKey))
		}
	}

	result, errs := generateFn()
	if len(errs) == 0 {
		cr, err := json.Marshal(result)
		if err == nil {
			cacheDuration := defaultCacheDuration
			if cacheOptions.Duration > 0 {
				cacheDuration = cacheOptions.Duration
			}
			if err := c.Set(ctx, string(jsonCacheKey), cr, cacheDuration); err != nil {
				log.WithError(err).Warningf("couldn't persist new item to cache")
			} else {
				log.Debugf("cache set for cache key: %s", string(jsonCacheKey))
			}
		}
	}
	return result, errs
}

// isStructWithNoPublicFields checks if the given interface is a struct with no public fields.
func isStructWithNoPublicFields(v interface{}) bool {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < val.NumField(); i++ {
		if val.Type().Field(i).IsExported() {
			return false
		}
	}
	return true
}

// RespondWithJSON writes data as the JSON response body with the given status.
func RespondWithJSON(statusCode int, w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warning("could not encode JSON response")
	}
}

// RespondWithError writes the standard {code, message} failure body.
func RespondWithError(statusCode int, w http.ResponseWriter, message string) {
	RespondWithJSON(statusCode, w, map[string]interface{}{"code": statusCode, "message": message})
}
