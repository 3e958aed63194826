package bot

import "github.com/bwmarrin/discordgo"

// commandDefs returns the slash-command schemas to register.
func commandDefs() []*discordgo.ApplicationCommand {
	modeChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Local (your machine)", Value: "local"},
		{Name: "Cluster (shared nodes)", Value: "cluster"},
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "task",
			Description: "Submit a task to the agent",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "The task/prompt to run",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "project",
					Description: "Project name to work on (use /project list to see available)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "target",
					Description: "Use another user's wrapper (requires their permission via /share)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Where to run: local (your machine) or cluster",
					Choices:     modeChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "session",
					Description: "Optional session ID to continue a previous session",
				},
			},
		},
		{
			Name:        "status",
			Description: "Check the status of a task",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "task_id",
					Description: "The task ID to check",
					Required:    true,
				},
			},
		},
		{
			Name:        "approve",
			Description: "Submit approval for a task requiring human intervention",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "task_id",
					Description: "The task ID requiring approval",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "option",
					Description: "The approval option to select",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "response",
					Description: "Optional custom response text",
				},
			},
		},
		{
			Name:        "project",
			Description: "Manage your registered projects",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List your registered projects",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a new project",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Unique project name/alias (e.g., 'my-api')",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "path",
							Description: "Absolute path to the project directory",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "description",
							Description: "Optional project description",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a project",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Project name to remove",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "register",
			Description: "Register your local wrapper or manage settings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "local",
					Description: "Register your local wrapper URL",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "Your wrapper URL (e.g., http://your-ip:8000)",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unregister",
					Description: "Unregister your local wrapper",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "mode",
					Description: "Set your default execution mode",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "default",
							Description: "Default mode for tasks",
							Required:    true,
							Choices:     modeChoices,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Check your registration status",
				},
			},
		},
		{
			Name:        "share",
			Description: "Manage who can use your wrapper for collaborative work",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Grant another user access to your wrapper",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The user to grant access to",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a user's access to your wrapper",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The user to remove access from",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List users who have access to your wrapper",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "available",
					Description: "List wrappers you have access to (your own + shared with you)",
				},
			},
		},
	}
}
