package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ochotona/internal/core/entity"
	"ochotona/internal/core/id"
	"ochotona/internal/domain/filter"
	"ochotona/internal/infrastructure/http/client"
	"ochotona/internal/store"
)

// form describes how one entity type is edited and shown on the command line.
type form[T entity.Entity] struct {
	// key addresses the store in the aggregator
	key string

	use     string
	aliases []string
	short   string

	header []string
	row    func(T) []string

	// bind registers the field flags of create, update and patch
	bind func(fs *pflag.FlagSet)

	// blank returns a record carrying only its id, for partial updates
	blank func(entityID id.ID) T

	// apply copies the changed field flags onto the record
	apply func(ctx context.Context, a *app, fs *pflag.FlagSet, record *T) error
}

func newEntityCommand[T entity.Entity](a *app, f *form[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:     f.use,
		Aliases: f.aliases,
		Short:   f.short,
	}
	cmd.AddCommand(
		newListCommand(a, f),
		newGetCommand(a, f),
		newCreateCommand(a, f),
		newUpdateCommand(a, f),
		newPatchCommand(a, f),
		newDeleteCommand(a, f),
	)
	return cmd
}

func (f *form[T]) store(a *app) (*store.Store[T], error) {
	return store.Of[T](a.stores.Aggregator, f.key)
}

func (f *form[T]) printOne(a *app, record T) error {
	return a.printResult(record, f.header, [][]string{f.row(record)})
}

func (f *form[T]) printMany(a *app, records []T) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, f.row(r))
	}
	return a.printResult(records, f.header, rows)
}

// stateError turns the store's error message into the command error.
func stateError[T entity.Entity](s *store.Store[T], err error) error {
	if msg := s.Snapshot().ErrorMessage; msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return err
}

func parseID(arg string) (id.ID, error) {
	entityID, err := id.Parse(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	return entityID, nil
}

func newListCommand[T entity.Entity](a *app, f *form[T]) *cobra.Command {
	var (
		page, size int
		sort       []string
		filters    []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all " + f.use + " records",
		Example: fmt.Sprintf(`  ochotona %[1]s list
  ochotona %[1]s list --sort id,desc --size 20
  ochotona %[1]s list --filter id:gt:10 --json`, f.use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := filter.ParseAll(filters)
			if err != nil {
				return err
			}
			q := client.ListQuery{Sort: sort, Filter: items}
			if cmd.Flags().Changed("page") {
				q.Page = &page
			}
			if cmd.Flags().Changed("size") {
				q.Size = &size
			}

			s, err := f.store(a)
			if err != nil {
				return err
			}
			records, err := s.FetchAll(cmd.Context(), q)
			if err != nil {
				return stateError(s, err)
			}
			records, err = applyFilter(records, items)
			if err != nil {
				return err
			}
			return f.printMany(a, records)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page index")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	cmd.Flags().StringArrayVar(&sort, "sort", nil, "Sort as field,asc|desc (repeatable)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter as field:operator:value (repeatable)")
	return cmd
}

// applyFilter keeps the records matching every item; servers that ignore the
// filter parameter return the full collection.
func applyFilter[T any](records []T, items []filter.Item) ([]T, error) {
	if len(items) == 0 {
		return records, nil
	}
	fields, err := filter.Records(records)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for i, r := range records {
		if filter.Match(fields[i], items) {
			out = append(out, r)
		}
	}
	return out, nil
}

func newGetCommand[T entity.Entity](a *app, f *form[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one " + f.use + " record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := f.store(a)
			if err != nil {
				return err
			}
			record, err := s.Fetch(cmd.Context(), entityID)
			if err != nil {
				return stateError(s, err)
			}
			return f.printOne(a, record)
		},
	}
}

func newCreateCommand[T entity.Entity](a *app, f *form[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a " + f.use + " record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := f.store(a)
			if err != nil {
				return err
			}
			// a new form starts from a clean store
			s.Reset()

			var record T
			if err := f.apply(cmd.Context(), a, cmd.Flags(), &record); err != nil {
				return err
			}
			return f.submit(cmd.Context(), a, s, s.Create, record)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func newUpdateCommand[T entity.Entity](a *app, f *form[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a " + f.use + " record; unset flags keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := f.store(a)
			if err != nil {
				return err
			}
			record, err := s.Fetch(cmd.Context(), entityID)
			if err != nil {
				return stateError(s, err)
			}
			if err := f.apply(cmd.Context(), a, cmd.Flags(), &record); err != nil {
				return err
			}
			return f.submit(cmd.Context(), a, s, s.Update, record)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func newPatchCommand[T entity.Entity](a *app, f *form[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch <id>",
		Short: "Send only the given fields of a " + f.use + " record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := f.store(a)
			if err != nil {
				return err
			}
			record := f.blank(entityID)
			if err := f.apply(cmd.Context(), a, cmd.Flags(), &record); err != nil {
				return err
			}
			return f.submit(cmd.Context(), a, s, s.Patch, record)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func newDeleteCommand[T entity.Entity](a *app, f *form[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + f.use + " record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := f.store(a)
			if err != nil {
				return err
			}
			// the record is loaded first, as a confirmation dialog would
			if _, err := s.Fetch(cmd.Context(), entityID); err != nil {
				return stateError(s, err)
			}
			if err := s.Delete(cmd.Context(), entityID); err != nil {
				return stateError(s, err)
			}
			if a.cfg.JSON {
				return printJSON(a.out, map[string]any{"deleted": true, "entity": f.key, "id": entityID})
			}
			_, err = fmt.Fprintf(a.out, "deleted %s %s\n", f.key, entityID)
			return err
		},
	}
}

// submit runs a write and prints the result once the store reports success.
func (f *form[T]) submit(
	ctx context.Context,
	a *app,
	s *store.Store[T],
	write func(context.Context, T) (T, error),
	record T,
) error {
	if _, err := write(ctx, record); err != nil {
		return stateError(s, err)
	}
	st := s.Snapshot()
	if !st.UpdateSuccess {
		return fmt.Errorf("%s write did not complete", f.key)
	}
	return f.printOne(a, st.Entity)
}
