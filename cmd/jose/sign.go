package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jws"
	"github.com/jose-engine/jose/pkg/jwt"
	"github.com/jose-engine/jose/pkg/keyutil"
)

type signOptions struct {
	kid         string
	contentType string
	json        bool

	jwt bool
	jti bool
	iat bool
	exp time.Duration
}

func newSignCmd(a *app) *cobra.Command {
	var opts signOptions

	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Sign a payload read from a file or stdin",
		Long: `Sign a payload read from a file or stdin and print the compact
serialization, or the flattened JSON serialization with --json.

With --jwt the payload is a JSON object of claims. --jti, --iat and --exp
add the matching registered claims.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return a.sign(cmd, payload, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.kid, "kid", "", "key ID (\"kid\") to put in the protected header")
	flags.StringVar(&opts.contentType, "cty", "", "content type (\"cty\") to put in the protected header")
	flags.BoolVar(&opts.json, "json", false, "print the flattened JSON serialization")
	flags.BoolVar(&opts.jwt, "jwt", false, "treat the payload as a JWT claims set")
	flags.BoolVar(&opts.jti, "jti", false, "add a random \"jti\" claim (implies --jwt)")
	flags.BoolVar(&opts.iat, "iat", false, "add an \"iat\" claim for the current time (implies --jwt)")
	flags.DurationVar(&opts.exp, "exp", 0, "add an \"exp\" claim this far in the future (implies --jwt)")

	return cmd
}

func (a *app) signingOptions(kid, contentType string) ([]jws.Option, error) {
	opts := []jws.Option{
		jws.WithAlgorithm(a.cfg.Algorithm),
		jws.WithType(a.cfg.Type),
		jws.WithAllowNone(a.cfg.AllowNone),
		jws.WithKeyID(kid),
		jws.WithContentType(contentType),
		jws.WithLogger(a.logger),
	}

	if a.cfg.Algorithm == jwa.None {
		return opts, nil
	}

	if a.cfg.KeyFile == "" {
		return nil, errors.New("a signing key is required: set --key or key_file")
	}

	f, err := os.Open(a.cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	key, err := keyutil.ParseSigningKey(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	return append(opts, jws.WithKey(key)), nil
}

func (a *app) sign(cmd *cobra.Command, payload []byte, opts signOptions) error {
	if opts.jti || opts.iat || opts.exp != 0 {
		opts.jwt = true
	}
	if opts.jwt && opts.json {
		return errors.New("--json cannot be combined with --jwt")
	}

	engineOpts, err := a.signingOptions(opts.kid, opts.contentType)
	if err != nil {
		return err
	}

	if opts.jwt {
		claims := jwt.ClaimsSet{}
		if len(bytes.TrimSpace(payload)) > 0 {
			if err := json.Unmarshal(payload, &claims); err != nil {
				return fmt.Errorf("failed to parse claims: %w", err)
			}
		}

		now := time.Now()
		if opts.jti {
			claims[jwt.JWTID] = uuid.NewString()
		}
		if opts.iat {
			claims[jwt.IssuedAt] = now
		}
		if opts.exp != 0 {
			claims[jwt.ExpirationTime] = now.Add(opts.exp)
		}

		token, err := jwt.New(engineOpts...).Sign(claims)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	}

	engine := jws.New(engineOpts...)

	if opts.json {
		out, err := engine.JSON(payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	}

	message, err := engine.Compact(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), message)
	return err
}
