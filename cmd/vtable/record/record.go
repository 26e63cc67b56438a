// Package record implements the `record` subcommands, one per adapter
// operation.
package record

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/cmd/vtable/common"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/adapter"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

func NewCommand(flags *common.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Create, read, update and delete rows through the virtual table",
		Long: `Run a single virtual-table operation against the configured BigQuery table.

Attributes are named by their virtual column (destination) name and given
as --attr name=value. Values are converted according to the mapping schema.

Examples:
  bqvt record create --attr new_name=Cubs --attr new_attendance=39000
  bqvt record get 3f2504e0-4f89-11d3-9a0c-0305e82c3301
  bqvt record list
  bqvt record update 3f2504e0-4f89-11d3-9a0c-0305e82c3301 --attr new_attendance=41000
  bqvt record delete 3f2504e0-4f89-11d3-9a0c-0305e82c3301
`,
	}

	cmd.AddCommand(
		newCreateCommand(flags),
		newGetCommand(flags),
		newListCommand(flags),
		newUpdateCommand(flags),
		newDeleteCommand(flags),
	)

	return cmd
}

func newCreateCommand(flags *common.Flags) *cobra.Command {
	var attrs []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Insert a row and print the created record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes, err := ParseAttributes(attrs)
			if err != nil {
				return err
			}
			return common.Run(flags, func(ctx context.Context, rt *common.Runtime) error {
				created, err := rt.Adapter.Create(ctx, &adapter.Record{
					LogicalName: rt.Adapter.LogicalName(),
					Attributes:  attributes,
				})
				if err != nil {
					return err
				}
				return common.WriteJSON(cmd.OutOrStdout(), created)
			})
		},
	}

	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "Attribute as name=value (repeatable)")

	return cmd
}

func newGetCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print the record with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(flags, func(ctx context.Context, rt *common.Runtime) error {
				rec, err := rt.Adapter.Retrieve(ctx, args[0])
				if err != nil {
					return err
				}
				return common.WriteJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newListCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every record in the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(flags, func(ctx context.Context, rt *common.Runtime) error {
				recs, err := rt.Adapter.RetrieveMultiple(ctx)
				if err != nil {
					return err
				}
				if recs == nil {
					recs = []*adapter.Record{}
				}
				return common.WriteJSON(cmd.OutOrStdout(), recs)
			})
		},
	}
}

func newUpdateCommand(flags *common.Flags) *cobra.Command {
	var attrs []string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the mapped columns of one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes, err := ParseAttributes(attrs)
			if err != nil {
				return err
			}
			return common.Run(flags, func(ctx context.Context, rt *common.Runtime) error {
				return rt.Adapter.Update(ctx, &adapter.Record{
					LogicalName: rt.Adapter.LogicalName(),
					ID:          args[0],
					Attributes:  attributes,
				})
			})
		},
	}

	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "Attribute as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("attr")

	return cmd
}

func newDeleteCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the record with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(flags, func(ctx context.Context, rt *common.Runtime) error {
				return rt.Adapter.Delete(ctx, args[0])
			})
		},
	}
}

// ParseAttributes turns name=value pairs into an attribute map. The value
// may be empty; the name may not. A later pair overrides an earlier one.
func ParseAttributes(pairs []string) (map[string]any, error) {
	attributes := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.New(errors.ErrInvalidArgument, "malformed attribute").
				WithDetail(fmt.Sprintf("expected name=value, got %q", pair))
		}
		attributes[name] = value
	}
	return attributes, nil
}
