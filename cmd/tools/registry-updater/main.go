// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"storefront-services/internal/inquiry"
	"storefront-services/pkg/registry"
)

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	listPath := listCmd.String("path", "configs/forms.json", "Path to form registry")

	updatePath := updateCmd.String("path", "configs/forms.json", "Path to form registry")
	idUpdate := updateCmd.String("id", "", "Form ID to update (e.g., quote)")
	field := updateCmd.String("field", "", "Field to update (displayName, subject, replyTo, alert)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", "configs/forms.json", "Path to form registry")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listForms(*listPath); err != nil {
			fmt.Printf("Error listing forms: %v\n", err)
			os.Exit(1)
		}

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" {
			fmt.Println("Error: id and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateForm(*updatePath, *idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating form: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated form %s, field %s to %q\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(*validatePath); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func listForms(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	for _, f := range reg.Forms {
		required, _ := f.Schema["required"].([]interface{})
		fmt.Printf("%-10s %-22s alert=%-5t replyTo=%-8s required=%d\n",
			f.ID, f.DisplayName, f.Alert, f.ReplyTo, len(required))
	}
	return nil
}

func updateForm(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Forms {
		if reg.Forms[i].ID != id {
			continue
		}
		found = true
		switch field {
		case "displayName":
			reg.Forms[i].DisplayName = value
		case "subject":
			reg.Forms[i].Subject = value
		case "replyTo":
			reg.Forms[i].ReplyTo = value
		case "alert":
			alert, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid alert value: %w", err)
			}
			reg.Forms[i].Alert = alert
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}
	if !found {
		return fmt.Errorf("form with ID %s not found", id)
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if err := checkRegistry(reg); err != nil {
		return err
	}
	return saveRegistry(reg, path)
}

func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := checkRegistry(reg); err != nil {
		return err
	}
	fmt.Printf("Registry validation passed. Found %d forms.\n", len(reg.Forms))
	return nil
}

// checkRegistry compiles every schema and checks that the fields the
// deliverer relies on are present.
func checkRegistry(reg *registry.FormRegistry) error {
	if len(reg.Forms) == 0 {
		return fmt.Errorf("registry contains no forms")
	}
	if _, err := inquiry.NewForms(reg); err != nil {
		return err
	}

	var problems []string
	for _, f := range reg.Forms {
		if f.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("form %s missing displayName", f.ID))
		}
		if f.ReplyTo == "" {
			continue
		}
		props, _ := f.Schema["properties"].(map[string]interface{})
		if _, ok := props[f.ReplyTo]; !ok {
			problems = append(problems, fmt.Sprintf("form %s replyTo field %q is not in its schema", f.ID, f.ReplyTo))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%d problems: %v", len(problems), problems)
	}
	return nil
}

func saveRegistry(reg *registry.FormRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  list     List the forms in the registry
  update   Update a form's field
  validate Compile every form schema and check the registry
  help     Show this help message

Examples:
  registry-updater list -path configs/forms.json
  registry-updater update -id quote -field alert -value true
  registry-updater validate -path configs/forms.json

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
