package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/flowent-gateway/utils"
)

var invokeParams string

var invokeCmd = &cobra.Command{
	Use:   "invoke <tenant-id> <action>",
	Short: "Invoke a registered action directly, bypassing the HTTP API",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params map[string]interface{}
		if err := json.Unmarshal([]byte(invokeParams), &params); err != nil {
			return fmt.Errorf("--params must be a JSON object: %w", err)
		}

		return withApplication(cmd, func(app *application) error {
			if err := app.requirePostgres(); err != nil {
				return err
			}
			result, err := app.invoker.Invoke(cmd.Context(), args[0], args[1], params)
			if result != nil {
				printField("Outcome", string(result.Outcome))
				printField("Duration", result.Duration.String())
				if result.StatusCode != 0 {
					printField("HTTP status", fmt.Sprint(result.StatusCode))
				}
				printField("Result", result.Response.Result)
				if result.Response.Error != "" {
					printField("Error", result.Response.Error)
				}
			}
			if err != nil {
				apiErr := utils.AsAPIError(err)
				return fmt.Errorf("%s: %s", apiErr.Kind, apiErr.Error())
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(invokeCmd)
	invokeCmd.Flags().StringVarP(&invokeParams, "params", "p", "{}", "Action parameters as a JSON object")
}
