package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the credentials and payments tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if a.db == nil {
			return errors.New("migrate needs STORE_DRIVER=postgres")
		}
		if err := a.db.Migrate(cmd.Context()); err != nil {
			return err
		}
		a.log.Info("schema up to date")
		return nil
	},
}
