package main

import (
	"fmt"
	"strconv"

	"github.com/modstage/modstage/internal/staging"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage version groups",
	Long:  `A group is a set of mods considered alternative versions of each other; exactly one member is active at a time.`,
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <mod-id> <mod-id>",
	Short: "Form a version group from two mods",
	Args:  cobra.ExactArgs(2),
	RunE:  runGroupCreate,
}

var groupAddCmd = &cobra.Command{
	Use:   "add <group-index> <mod-id>",
	Short: "Add a mod to an existing group",
	Args:  cobra.ExactArgs(2),
	RunE:  runGroupAdd,
}

var groupRemoveCmd = &cobra.Command{
	Use:   "remove <mod-id>",
	Short: "Remove a mod from its group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupRemove,
}

var groupActivateCmd = &cobra.Command{
	Use:   "activate <group-index> <member-index>",
	Short: "Switch the active member of a group",
	Args:  cobra.ExactArgs(2),
	RunE:  runGroupActivate,
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List version groups",
	RunE:  runGroupList,
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage manual tags",
	Long:  `A manual tag names an arbitrary set of mods picked explicitly, as opposed to an automatic tag evaluated from mod content.`,
}

var tagAddCmd = &cobra.Command{
	Use:   "add <name> <mod-id>...",
	Short: "Create a manual tag, or add mods to an existing one",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTagAdd,
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a manual tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagRemove,
}

var tagRenameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a manual tag",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagRename,
}

func init() {
	groupCmd.AddCommand(groupCreateCmd, groupAddCmd, groupRemoveCmd, groupActivateCmd, groupListCmd)
	modCmd.AddCommand(groupCmd)

	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd, tagRenameCmd)
	modCmd.AddCommand(tagCmd)
}

func runTagAdd(cmd *cobra.Command, args []string) error {
	ids, err := parseInts(args[1:])
	if err != nil {
		return err
	}
	name := args[0]
	if err := withController(func(c *staging.Controller) error {
		return c.EditManualTags([]staging.TagAction{{Op: "add", Name: name, ModIDs: ids}})
	}); err != nil {
		return err
	}
	fmt.Printf("Tagged %v as %q\n", ids, name)
	return nil
}

func runTagRemove(cmd *cobra.Command, args []string) error {
	if err := withController(func(c *staging.Controller) error {
		return c.EditManualTags([]staging.TagAction{{Op: "remove", Name: args[0]}})
	}); err != nil {
		return err
	}
	fmt.Printf("Removed tag %q\n", args[0])
	return nil
}

func runTagRename(cmd *cobra.Command, args []string) error {
	if err := withController(func(c *staging.Controller) error {
		return c.EditManualTags([]staging.TagAction{{Op: "rename", Name: args[0], NewName: args[1]}})
	}); err != nil {
		return err
	}
	fmt.Printf("Renamed tag %q to %q\n", args[0], args[1])
	return nil
}

func parseInts(args []string) ([]int, error) {
	ids := make([]int, len(args))
	for i, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", a, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func withController(fn func(c *staging.Controller) error) error {
	_, cfgDir, err := loadSettings()
	if err != nil {
		return err
	}
	app, err := requireApp(cfgDir)
	if err != nil {
		return err
	}
	c, err := openController(app)
	if err != nil {
		return err
	}
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if err := fn(c); err != nil {
		return err
	}
	return c.Save()
}

func runGroupCreate(cmd *cobra.Command, args []string) error {
	ids, err := parseInts(args)
	if err != nil {
		return err
	}
	if err := withController(func(c *staging.Controller) error {
		return c.CreateGroup(ids[0], ids[1])
	}); err != nil {
		return err
	}
	fmt.Printf("Grouped mods %d and %d\n", ids[0], ids[1])
	return nil
}

func runGroupAdd(cmd *cobra.Command, args []string) error {
	ids, err := parseInts(args)
	if err != nil {
		return err
	}
	if err := withController(func(c *staging.Controller) error {
		return c.AddModToGroup(ids[0], ids[1])
	}); err != nil {
		return err
	}
	fmt.Printf("Added mod %d to group %d\n", ids[1], ids[0])
	return nil
}

func runGroupRemove(cmd *cobra.Command, args []string) error {
	ids, err := parseInts(args)
	if err != nil {
		return err
	}
	if err := withController(func(c *staging.Controller) error {
		return c.RemoveModFromGroup(ids[0])
	}); err != nil {
		return err
	}
	fmt.Printf("Removed mod %d from its group\n", ids[0])
	return nil
}

func runGroupActivate(cmd *cobra.Command, args []string) error {
	ids, err := parseInts(args)
	if err != nil {
		return err
	}
	if err := withController(func(c *staging.Controller) error {
		return c.ChangeActiveGroupMember(ids[0], ids[1])
	}); err != nil {
		return err
	}
	fmt.Printf("Activated member %d of group %d\n", ids[1], ids[0])
	return nil
}

func runGroupList(cmd *cobra.Command, args []string) error {
	_, cfgDir, err := loadSettings()
	if err != nil {
		return err
	}
	app, err := requireApp(cfgDir)
	if err != nil {
		return err
	}
	c, err := openController(app)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(c.Groups)
	}
	if len(c.Groups) == 0 {
		fmt.Println("No version groups.")
		return nil
	}
	t := newTable()
	t.AppendHeader(table.Row{"Group", "Active", "Members"})
	for i, g := range c.Groups {
		t.AppendRow(table.Row{i, g.ActiveMember, fmt.Sprint(g.Members)})
	}
	t.Render()
	return nil
}
