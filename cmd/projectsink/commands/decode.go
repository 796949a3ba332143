package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/protocolindex/projectsink/config"
	"github.com/protocolindex/projectsink/internal/indexer/project"
	"github.com/protocolindex/projectsink/types"
)

// MakeDecodeCommand returns the command printing the row a datum decodes to.
func MakeDecodeCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "decode <project|detail|script> <datum hex>",
		Short:     "Decode a CBOR datum and print the resulting row as JSON",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"project", "detail", "script"},
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
			if err != nil {
				return fmt.Errorf("invalid datum hex: %w", err)
			}
			v, err := decodeDatum(args[0], bz, types.Network(conf.Chain.Network))
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func decodeDatum(kind string, bz []byte, network types.Network) (interface{}, error) {
	switch kind {
	case "project":
		d, err := project.DecodeProjectDatum(bz)
		if err != nil {
			return nil, err
		}
		return project.NewRecord(d, network)
	case "detail":
		d, err := project.DecodeDetailDatum(bz)
		if err != nil {
			return nil, err
		}
		return project.NewDetailRecord(d), nil
	case "script":
		return project.DecodeScriptDatum(bz)
	default:
		return nil, fmt.Errorf("unknown datum kind %q", kind)
	}
}
