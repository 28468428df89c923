package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/slot/internal/app"
	"github.com/example/slot/internal/models"
	"github.com/example/slot/internal/wire"
)

// GroupCmd returns the group command
func GroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage presentation groups",
		Long:  `Groups order projects in list and status output. Membership lives on the project.`,
	}

	cmd.AddCommand(groupListCmd())
	cmd.AddCommand(groupAddCmd())
	cmd.AddCommand(groupSetCmd())
	cmd.AddCommand(groupRmCmd())

	return cmd
}

func groupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups and their projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := wire.Store().Load()
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}

			if len(reg.Groups) == 0 {
				fmt.Println("No groups defined")
				return nil
			}

			names := make([]string, 0, len(reg.Groups))
			for name := range reg.Groups {
				names = append(names, name)
			}
			sort.Slice(names, func(i, j int) bool {
				a, b := reg.Groups[names[i]], reg.Groups[names[j]]
				if a.Order != b.Order {
					return a.Order < b.Order
				}
				return names[i] < names[j]
			})

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tDISPLAY\tORDER\tPROJECTS")
			for _, name := range names {
				group := reg.Groups[name]
				var members []string
				for projectName, project := range reg.Projects {
					if project.Group == name {
						members = append(members, projectName)
					}
				}
				sort.Strings(members)
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", name, group.DisplayName, group.Order, len(members))
			}
			w.Flush()
			return nil
		},
	}
}

func groupAddCmd() *cobra.Command {
	var display string
	var order int

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			err := wire.Store().Update(func(reg *models.Registry) error {
				if _, ok := reg.Groups[name]; ok {
					return fmt.Errorf("group %s already exists", name)
				}
				if display == "" {
					display = app.TitleCase(name)
				}
				if order == 0 {
					order = len(reg.Groups) + 1
				}
				reg.Groups[name] = models.Group{DisplayName: display, Order: order}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s Added group %s\n", okMark(), name)
			return nil
		},
	}

	cmd.Flags().StringVar(&display, "display", "", "Display name (default: title-cased name)")
	cmd.Flags().IntVar(&order, "order", 0, "Sort order (default: after existing groups)")

	return cmd
}

func groupSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [project] [group]",
		Short: "Assign a project to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectName, groupName := args[0], args[1]
			err := wire.Store().Update(func(reg *models.Registry) error {
				project, ok := reg.Projects[projectName]
				if !ok {
					return fmt.Errorf("project %s is not registered", projectName)
				}
				if _, ok := reg.Groups[groupName]; !ok {
					return fmt.Errorf("group %s does not exist", groupName)
				}
				project.Group = groupName
				reg.Projects[projectName] = project
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s %s → %s\n", okMark(), projectName, groupName)
			return nil
		},
	}
}

func groupRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [name]",
		Short: "Remove a group",
		Long:  `Remove a group. Member projects become ungrouped.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			err := wire.Store().Update(func(reg *models.Registry) error {
				if _, ok := reg.Groups[name]; !ok {
					return fmt.Errorf("group %s does not exist", name)
				}
				delete(reg.Groups, name)
				for projectName, project := range reg.Projects {
					if project.Group == name {
						project.Group = ""
						reg.Projects[projectName] = project
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s Removed group %s\n", okMark(), name)
			return nil
		},
	}
}
