package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jose-engine/jose/pkg/base64"
	"github.com/jose-engine/jose/pkg/jws"
)

// inspection is the decoded, unverified form of a compact message.
type inspection struct {
	Header    map[string]any `json:"header" yaml:"header"`
	Payload   any            `json:"payload" yaml:"payload"`
	Signature int            `json:"signature_bytes" yaml:"signature_bytes"`
}

func newInspectCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Decode a compact JWS without verifying it",
		Long: `Decode the protected header and payload of a compact JWS.

Nothing is verified: use "jose verify" before trusting the output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			result, err := inspect(strings.TrimSpace(string(message)))
			if err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(result); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unsupported output format %q", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")

	return cmd
}

func inspect(message string) (*inspection, error) {
	h, payload, err := jws.Inspect(message)
	if err != nil {
		return nil, err
	}

	parts, err := jws.Split(message)
	if err != nil {
		return nil, err
	}

	sig, err := base64.Decode(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", jws.ErrMalformedMessage, err)
	}

	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}

	result := &inspection{Signature: len(sig)}
	if err := decodeJSON(b, &result.Header); err != nil {
		return nil, err
	}

	// Payloads that are not JSON are shown as text.
	var decoded any
	if err := decodeJSON(payload, &decoded); err == nil {
		result.Payload = decoded
	} else {
		result.Payload = string(payload)
	}

	return result, nil
}

func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}
