package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jose-engine/jose/pkg/jwa"
	"github.com/jose-engine/jose/pkg/jwk"
	"github.com/jose-engine/jose/pkg/jwk/thumbprint"
	"github.com/jose-engine/jose/pkg/keyutil"
)

type keygenOptions struct {
	kty       string
	bits      int
	size      int
	kid       string
	kidFormat string
	out       string
}

func newKeygenCmd(a *app) *cobra.Command {
	var opts keygenOptions

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key and print its JWK set",
		Long: `Generate a signing key and write it to --out.

RSA keys are written as PKCS#8 PEM and "oct" keys as a JWK. The JWK set
printed on stdout holds the verification key: the public key for RSA,
and the secret itself for "oct".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.keygen(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.kty, "kty", jwk.KeyTypeRSA, "key type: RSA or oct")
	flags.IntVar(&opts.bits, "bits", keyutil.MinRSAKeySize, "RSA modulus size in bits")
	flags.IntVar(&opts.size, "size", 64, "oct key size in bytes")
	flags.StringVar(&opts.kid, "kid", "", "key ID (default: derived per --kid-format)")
	flags.StringVar(&opts.kidFormat, "kid-format", "thumbprint", "key ID derivation: thumbprint or uuid")
	flags.StringVarP(&opts.out, "out", "o", "", "file the signing key is written to")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func (a *app) keygen(cmd *cobra.Command, opts keygenOptions) error {
	var (
		private []byte
		public  jwk.Key
		err     error
	)

	switch opts.kty {
	case jwk.KeyTypeRSA:
		pub, priv, err := keyutil.NewRSAKeyPair(opts.bits)
		if err != nil {
			return err
		}
		private, err = keyutil.MarshalRSAPrivateKeyPEM(priv)
		if err != nil {
			return err
		}
		public = jwk.NewRSAPublicKey(pub)
	case jwk.KeyTypeOctet:
		key, err := keyutil.NewSymmetricKey(opts.size)
		if err != nil {
			return err
		}
		public = key
	default:
		return fmt.Errorf("unsupported key type %q", opts.kty)
	}

	kid := opts.kid
	if kid == "" {
		switch opts.kidFormat {
		case "thumbprint":
			kid, err = thumbprint.ForKey(public)
			if err != nil {
				return fmt.Errorf("failed to compute key thumbprint: %w", err)
			}
		case "uuid":
			kid = uuid.NewString()
		default:
			return fmt.Errorf("unsupported kid format %q", opts.kidFormat)
		}
	}

	value, err := jwk.ValueFromKey(public)
	if err != nil {
		return err
	}
	value[jwk.KeyID] = kid
	value[jwk.PublicKeyUse] = "sig"
	if p, err := jwa.Resolve(a.cfg.Algorithm); err == nil && p.KeyType() == opts.kty {
		value[jwk.Algorithm] = p.Algorithm
	}

	if private == nil {
		private, err = json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(opts.out, private, 0o600); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}

	a.logger.Info("generated key",
		zap.String("kty", opts.kty),
		zap.String("kid", kid),
		zap.String("out", opts.out),
	)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(jwk.Set{Keys: []jwk.Value{value}})
}
