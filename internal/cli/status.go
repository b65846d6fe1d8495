package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Load every collection and show the state of each entity store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, key := range a.stores.Keys() {
				h, err := a.stores.Handle(key)
				if err != nil {
					return err
				}
				// failures stay visible in the store's error message
				if err := h.Refresh(cmd.Context()); err != nil {
					a.log.Debugw("refresh failed", "entity", key, "error", err)
				}
			}

			status := a.stores.Status()
			rows := make([][]string, 0, len(status))
			for _, key := range a.stores.Keys() {
				st := status[key]
				rows = append(rows, []string{key, strconv.Itoa(st.Count), strconv.FormatBool(st.Loading), st.ErrorMessage})
			}
			return a.printResult(status, []string{"ENTITY", "COUNT", "LOADING", "ERROR"}, rows)
		},
	}
}
