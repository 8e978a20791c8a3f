package cmds

import (
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/spf13/cobra"
)

// AddToRootCommand registers every chatnav command on rootCmd.
func AddToRootCommand(rootCmd *cobra.Command) error {
	outlineCmd, err := NewOutlineCommand()
	if err != nil {
		return err
	}
	starCmd, err := NewStarCommand()
	if err != nil {
		return err
	}
	renameCmd, err := NewRenameCommand()
	if err != nil {
		return err
	}
	locateCmd, err := NewLocateCommand()
	if err != nil {
		return err
	}
	exportCmd, err := NewExportCommand()
	if err != nil {
		return err
	}
	watchCmd, err := NewWatchCommand()
	if err != nil {
		return err
	}
	schemaCmd, err := NewSchemaCommand()
	if err != nil {
		return err
	}
	dumpCmd, err := NewAnnotationsDumpCommand()
	if err != nil {
		return err
	}
	favoritesCmd, err := NewAnnotationsFavoritesCommand()
	if err != nil {
		return err
	}
	importCmd, err := NewAnnotationsImportCommand()
	if err != nil {
		return err
	}

	for _, c := range []cmds.Command{outlineCmd, starCmd, renameCmd, locateCmd, exportCmd, watchCmd, schemaCmd} {
		cobraCmd, err := cli.BuildCobraCommandFromCommand(c)
		if err != nil {
			return err
		}
		rootCmd.AddCommand(cobraCmd)
	}

	annotationsCmd := &cobra.Command{
		Use:   "annotations",
		Short: "Inspect and fill the annotation store",
	}
	for _, c := range []cmds.Command{dumpCmd, favoritesCmd, importCmd} {
		cobraCmd, err := cli.BuildCobraCommandFromCommand(c)
		if err != nil {
			return err
		}
		annotationsCmd.AddCommand(cobraCmd)
	}
	rootCmd.AddCommand(annotationsCmd)

	return nil
}
