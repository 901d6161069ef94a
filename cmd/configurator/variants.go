package main

import (
	"errors"
	"strconv"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var variantsCmd = &cobra.Command{
	Use:   "variants <template-id>",
	Short: "List the variants of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		templateID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg("template id must be an integer").WithCause(err)
		}
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.Configurator.ListVariants(cmd.Context(), templateID, !all)
		switch {
		case errors.Is(err, domain.ErrTemplateNotFound), errors.Is(err, domain.ErrNotFound):
			return errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("template not found").WithCause(err)
		case err != nil:
			return errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("list variants").WithCause(err)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(list)
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)
	variantsCmd.Flags().Bool("all", false, "Include archived variants")
}
