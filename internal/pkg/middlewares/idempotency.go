package middlewares

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/util/rekuest"
)

type IdempotencyConfig struct {
	// Lifetime is the maximum lifetime of an idempotency key.
	Lifetime time.Duration

	// KeyHeader is the name of the header that contains the idempotency key.
	KeyHeader string

	// KeepResponseHeaders is a list of headers that should be kept from the original response.
	// By default, all headers are kept.
	KeepResponseHeaders []string

	keepResponseHeadersMap map[string]struct{}

	// Storage is the storage backend for the idempotency key & its response data.
	Storage fiber.Storage

	// RedSync serializes concurrent requests carrying the same key. When nil, no lock is taken.
	RedSync *redsync.Redsync

	// Next defines a function to skip this middleware when returned true.
	//
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool
}

type idempotencyResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Idempotency replays the saved response of a previous successful request carrying the
// same key. Keys are scoped to the authenticated actor so that two users can never see
// each other's responses.
func Idempotency(config *IdempotencyConfig) fiber.Handler {
	config.keepResponseHeadersMap = make(map[string]struct{})
	for _, header := range config.KeepResponseHeaders {
		config.keepResponseHeadersMap[strings.ToLower(header)] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		if config.Next != nil && config.Next(c) {
			return c.Next()
		}

		key := c.Get(config.KeyHeader)
		if key == "" {
			if l := log.Trace(); l.Enabled() {
				l.
					Str("evt.name", "http.idempotency.no_key").
					Msg("idempotency key is missing. Skipping middleware.")
			}
			return c.Next()
		}

		if err := rekuest.Validate.Var(key, fmt.Sprintf("max=%d,printascii", constant.IdempotencyKeyLengthLimit)); err != nil {
			if l := log.Trace(); l.Enabled() {
				l.
					Err(err).
					Str("evt.name", "http.idempotency.invalid_key").
					Msg("idempotency key is invalid. Returning error.")
			}
			return acterr.ErrInvalidReq.Msg("invalid idempotency key: idempotency key can only be at most %d printable ASCII characters", constant.IdempotencyKeyLengthLimit)
		}

		c.Locals(constant.IdempotencyKeyLocalsKey, key)
		storageKey := scopedKey(c, key)

		// First-pass: if the idempotency key is in the storage, get and return the response
		if exist, err := checkWriteIdempotencyCachedMessage(c, config, storageKey); exist {
			return err
		}

		if config.RedSync != nil {
			mutex := config.RedSync.NewMutex("mutex:idempotency-request:"+storageKey, redsync.WithExpiry(time.Minute), redsync.WithTries(5), redsync.WithRetryDelay(time.Millisecond*250))

			if err := mutex.LockContext(c.UserContext()); err != nil {
				log.Err(err).
					Str("evt.name", "http.idempotency.lock.failed").
					Str("key", key).
					Msg("failed to lock idempotency key. Returning error.")
				return acterr.ErrConflict.Msg("idempotency key is locked by another request; are you sending the same request concurrently?")
			}

			defer func() {
				if _, err := mutex.Unlock(); err != nil {
					log.Err(err).
						Str("evt.name", "http.idempotency.unlock.failed").
						Str("key", key).
						Msg("failed to unlock idempotency key.")
				}
			}()

			// Lock acquired. The response may have been saved while waiting.
			if exist, err := checkWriteIdempotencyCachedMessage(c, config, storageKey); exist {
				return err
			}
		}

		if err := c.Next(); err != nil {
			if l := log.Trace(); l.Enabled() {
				l.
					Str("evt.name", "http.idempotency.handler.error").
					Msg("request handler returned an error. Skipping saving the idempotency response.")
			}
			return err
		}

		// only successful responses are replayed
		if c.Response().StatusCode() >= fiber.StatusBadRequest {
			return nil
		}

		responseBytes, err := marshalResponseToBytes(c, config)
		if err != nil {
			log.Error().
				Str("evt.name", "http.idempotency.response.marshal.failed").
				Err(err).
				Msg("error marshaling response to bytes. Skipping saving the idempotency response.")
			return nil
		}

		if err := config.Storage.Set(storageKey, responseBytes, config.Lifetime); err != nil {
			log.Error().
				Str("evt.name", "http.idempotency.response.save.failed").
				Err(err).
				Msg("error saving the idempotency response. Skipping saving the idempotency response.")
			return nil
		}

		c.Set(constant.IdempotencyHeader, "saved")

		if l := log.Debug(); l.Enabled() {
			l.
				Str("evt.name", "http.idempotency.saved").
				Str("key", key).
				Msg("idempotency response saved")
		}

		return nil
	}
}

func scopedKey(c *fiber.Ctx, key string) string {
	scope := "anonymous"
	if actor := Actor(c); actor != nil {
		scope = actor.UserID
	}
	h := xxh3.HashString128(c.Method() + " " + c.Path() + "\x00" + scope + "\x00" + key)
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

func marshalResponseToBytes(c *fiber.Ctx, conf *IdempotencyConfig) ([]byte, error) {
	var response idempotencyResponse

	response.StatusCode = c.Response().StatusCode()

	response.Headers = make(map[string]string)
	c.Response().Header.VisitAll(func(k, v []byte) {
		header := string(k)
		if conf.KeepResponseHeaders != nil {
			if _, ok := conf.keepResponseHeadersMap[strings.ToLower(header)]; !ok {
				return
			}
		}
		response.Headers[header] = string(v)
	})

	if c.Response().Body() != nil {
		response.Body = c.Response().Body()
	}

	return msgpack.Marshal(response)
}

func unmarshalResponseToFiberResponse(c *fiber.Ctx, responseBytes []byte) error {
	var response idempotencyResponse
	if err := msgpack.Unmarshal(responseBytes, &response); err != nil {
		return err
	}

	c.Status(response.StatusCode)

	for header, value := range response.Headers {
		c.Set(header, value)
	}

	c.Set(constant.IdempotencyHeader, "hit")

	if len(response.Body) > 0 {
		return c.Send(response.Body)
	}

	return nil
}

func checkWriteIdempotencyCachedMessage(c *fiber.Ctx, conf *IdempotencyConfig, key string) (bool, error) {
	response, err := conf.Storage.Get(key)
	if err == nil && response != nil {
		if l := log.Debug(); l.Enabled() {
			l.
				Str("evt.name", "http.idempotency.hit").
				Str("key", key).
				Msg("idempotency key found in storage")
		}
		return true, unmarshalResponseToFiberResponse(c, response)
	}

	return false, nil
}
