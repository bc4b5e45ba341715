package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chessprep/internal/replay"
	"chessprep/internal/store"
	"chessprep/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	wsGame int64
	wsName string
)

// workspaceCmd manages analysis workspaces
var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage analysis workspaces",
	Long: `Analysis workspaces hold annotated move trees built while preparing
against a stored game. Each workspace is tied to the games database it was
created from and to one game in it.`,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces for a game",
	RunE:  listWorkspaces,
}

var workspaceShowCmd = &cobra.Command{
	Use:   "show [workspace-id]",
	Short: "Show a workspace and its analysis nodes",
	Args:  cobra.ExactArgs(1),
	RunE:  showWorkspace,
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a workspace seeded from a game's final position",
	RunE:  createWorkspace,
}

var workspaceRenameCmd = &cobra.Command{
	Use:   "rename [workspace-id] [new-name]",
	Short: "Rename a workspace",
	Args:  cobra.ExactArgs(2),
	RunE:  renameWorkspace,
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "delete [workspace-id]",
	Short: "Delete a workspace and all its nodes",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteWorkspace,
}

func openWorkspaceStore() (*workspace.Store, error) {
	ws, err := workspace.Open(cfg.Database.WorkspacePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace database: %w", err)
	}
	return ws, nil
}

func parseWorkspaceID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid workspace id '%s'", arg)
	}
	return id, nil
}

func listWorkspaces(cmd *cobra.Command, args []string) error {
	if wsGame == 0 {
		return fmt.Errorf("pass --game to select the game to list workspaces for")
	}

	ws, err := openWorkspaceStore()
	if err != nil {
		return err
	}
	defer ws.Close()

	summaries, err := ws.List(cfg.Database.GamesPath, wsGame)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Printf("No workspaces for game %d\n", wsGame)
		return nil
	}

	fmt.Printf("%6s  %-32s %-20s %s\n", "ID", "Name", "Updated", "Root")
	for _, s := range summaries {
		fmt.Printf("%6d  %-32s %-20s %s\n",
			s.ID,
			truncateStr(s.Name, 32),
			time.Unix(s.UpdatedAt, 0).Format("2006-01-02 15:04:05"),
			s.RootNodeID)
	}
	return nil
}

func showWorkspace(cmd *cobra.Command, args []string) error {
	id, err := parseWorkspaceID(args[0])
	if err != nil {
		return err
	}

	ws, err := openWorkspaceStore()
	if err != nil {
		return err
	}
	defer ws.Close()

	loaded, err := ws.Load(id)
	if err != nil {
		return fmt.Errorf("load of workspace %d failed: %w", id, err)
	}

	s := loaded.Summary
	fmt.Printf("Workspace %d: %s\n", s.ID, s.Name)
	fmt.Printf("Game:    %d (%s)\n", s.GameID, s.SourceDBPath)
	fmt.Printf("Created: %s\n", time.Unix(s.CreatedAt, 0).Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated: %s\n", time.Unix(s.UpdatedAt, 0).Format("2006-01-02 15:04:05"))
	fmt.Printf("Nodes:   %d\n\n", len(loaded.Nodes))

	for _, n := range loaded.Nodes {
		marker := "  "
		if n.ID == s.CurrentNodeID {
			marker = "* "
		}
		move := n.SAN
		if move == "" {
			move = "(root)"
		}
		fmt.Printf("%s%-10s %s\n", marker, move, n.FEN)
		if n.Comment != "" {
			fmt.Printf("    ; %s\n", n.Comment)
		}
		if len(n.NAGs) > 0 {
			fmt.Printf("    %s\n", strings.Join(n.NAGs, " "))
		}
	}
	return nil
}

func createWorkspace(cmd *cobra.Command, args []string) error {
	if wsGame == 0 || wsName == "" {
		return fmt.Errorf("pass --game and --name to create a workspace")
	}

	st, err := store.Open(cfg.Database.GamesPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open games database: %w", err)
	}
	defer st.Close()

	fens, err := replay.GameFENs(st, wsGame)
	if err != nil {
		return fmt.Errorf("replay of game %d failed: %w", wsGame, err)
	}

	ws, err := openWorkspaceStore()
	if err != nil {
		return err
	}
	defer ws.Close()

	root := workspace.NewNode("", "", "", fens[len(fens)-1])
	id, err := ws.Save(cfg.Database.GamesPath, wsGame, wsName, root.ID, root.ID, []workspace.Node{root})
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	fmt.Printf("Created workspace %d (%s) for game %d\n", id, wsName, wsGame)
	return nil
}

func renameWorkspace(cmd *cobra.Command, args []string) error {
	id, err := parseWorkspaceID(args[0])
	if err != nil {
		return err
	}

	ws, err := openWorkspaceStore()
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.Rename(id, args[1]); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	fmt.Printf("Renamed workspace %d to %s\n", id, args[1])
	return nil
}

func deleteWorkspace(cmd *cobra.Command, args []string) error {
	id, err := parseWorkspaceID(args[0])
	if err != nil {
		return err
	}

	ws, err := openWorkspaceStore()
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.Delete(id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Deleted workspace %d\n", id)
	return nil
}

func init() {
	workspaceListCmd.Flags().Int64Var(&wsGame, "game", 0, "Game id the workspaces belong to")
	workspaceCreateCmd.Flags().Int64Var(&wsGame, "game", 0, "Game id to prepare against")
	workspaceCreateCmd.Flags().StringVar(&wsName, "name", "", "Workspace name")

	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceShowCmd)
	workspaceCmd.AddCommand(workspaceCreateCmd)
	workspaceCmd.AddCommand(workspaceRenameCmd)
	workspaceCmd.AddCommand(workspaceDeleteCmd)
}
