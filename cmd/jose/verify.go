package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jose-engine/jose/pkg/header"
	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jwk"
	"github.com/jose-engine/jose/pkg/jws"
	"github.com/jose-engine/jose/pkg/keyutil"
)

type verifyOptions struct {
	critical []string
}

func newVerifyCmd(a *app) *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify a JWS read from a file or stdin and print its payload",
		Long: `Verify a JWS in the compact or flattened JSON serialization and print
its payload.

The message must carry exactly the configured "typ" and "alg". The
verification key comes from --key, --jwks or --jwks-url, in that order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return a.verify(cmd, bytes.TrimSpace(message), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.critical, "crit", nil, "extension header parameters understood in \"crit\"")

	return cmd
}

func (a *app) verify(cmd *cobra.Command, message []byte, opts verifyOptions) error {
	isJSON := len(message) > 0 && message[0] == '{'

	kid, err := messageKeyID(message, isJSON)
	if err != nil {
		return err
	}

	keyOpt, err := a.verificationKey(cmd.Context(), kid)
	if err != nil {
		return err
	}

	engine := jws.New(
		jws.WithAlgorithm(a.cfg.Algorithm),
		jws.WithType(a.cfg.Type),
		jws.WithAllowNone(a.cfg.AllowNone),
		jws.WithCritical(opts.critical...),
		jws.WithLogger(a.logger),
		keyOpt,
	)

	var payload []byte
	if isJSON {
		payload, _, err = engine.ValidateJSON(message)
	} else {
		payload, err = engine.ValidateCompact(string(message))
	}
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(payload)
	return err
}

// messageKeyID returns the unverified "kid" of a message. It only selects
// a key; the engine decides whether the message is valid.
func messageKeyID(message []byte, isJSON bool) (string, error) {
	var protected string

	if isJSON {
		var msg jws.JSONMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return "", fmt.Errorf("%w: %v", jws.ErrMalformedMessage, err)
		}
		protected = msg.Protected
	} else {
		parts, err := jws.Split(string(message))
		if err != nil {
			return "", err
		}
		protected = parts[0]
	}

	h, err := header.Decode(protected)
	if err != nil {
		return "", fmt.Errorf("%w: %v", jws.ErrMalformedMessage, err)
	}

	return h.KeyID, nil
}

func (a *app) verificationKey(ctx context.Context, kid string) (jws.Option, error) {
	switch {
	case a.cfg.KeyFile != "":
		f, err := os.Open(a.cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		key, err := keyutil.ParseVerificationKey(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load verification key: %w", err)
		}
		return jws.WithKey(key), nil

	case a.cfg.JWKSFile != "":
		b, err := os.ReadFile(a.cfg.JWKSFile)
		if err != nil {
			return nil, err
		}

		var set jwk.Set
		if err := json.Unmarshal(b, &set); err != nil {
			return nil, fmt.Errorf("failed to parse JWK set: %w", err)
		}

		ks, err := set.KeySet()
		if err != nil {
			return nil, err
		}
		return jws.WithKeySet(ks), nil

	case a.cfg.JWKSURL != "":
		ctx, cancel := context.WithTimeout(ctx, a.cfg.HTTPTimeout)
		defer cancel()

		cache := jwk.NewURLSetCache(
			&http.Client{Timeout: a.cfg.HTTPTimeout},
			0,
			jwk.WithCacheLogger(a.logger),
		)

		entry, err := cache.GetKey(ctx, a.cfg.JWKSURL, kid, a.cfg.Algorithm)
		if err != nil {
			return nil, err
		}

		a.logger.Debug("selected key from JWK set",
			zap.String("url", a.cfg.JWKSURL),
			zap.String("kid", kid),
		)

		return jws.WithKeySet(jwk.KeySet{entry}), nil

	case a.cfg.Algorithm == jwa.None:
		return jws.WithKeySet(nil), nil
	}

	return nil, errors.New("a verification key is required: set --key, --jwks or --jwks-url")
}
