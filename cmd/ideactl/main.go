package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"ideaportal/internal/config"
	"ideaportal/internal/database"
	"ideaportal/internal/logger"
	"ideaportal/internal/repository"
	"ideaportal/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "ideactl",
		Usage: "Administration tool for the idea portal workflow",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-driver", Usage: "postgres or sqlite (defaults to DB_DRIVER)"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path (defaults to SQLITE_PATH)"},
			&cli.StringFlag{Name: "log-level", Value: "warn"},
		},
		Commands: []*cli.Command{
			seedRolesCommand(),
			classifyCommand(),
			resolveCommand(),
			pendingCommand(),
			thresholdCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

// deps is the slice of the service graph the commands need
type deps struct {
	db        *gorm.DB
	log       zerolog.Logger
	txManager repository.TransactionManager
	settings  service.SettingService
	resolver  service.ApproverResolver
	workflow  service.WorkflowService
	roles     service.RoleService
}

func open(c *cli.Command) (*deps, error) {
	cfg := config.Load()
	if v := c.String("db-driver"); v != "" {
		cfg.DB.Driver = v
	}
	if v := c.String("db-path"); v != "" {
		cfg.DB.SQLitePath = v
	}

	lg := logger.New(logger.Config{Level: c.String("log-level"), Environment: "development", ServiceName: "ideactl", Output: os.Stderr})
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	txManager := repository.NewTransactionManager(db)
	ideaRepo := repository.NewIdeaRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	settings := service.NewSettingService(repository.NewSettingRepository(db), repository.NewAuditRepository(db), lg)
	resolver := service.NewApproverResolver(roleRepo, userRepo, ideaRepo, lg)
	dispatcher := service.NewNotificationDispatcher(resolver, repository.NewEmployeeRepository(db), notificationRepo, nil, nil, cfg.BaseURL, lg)

	return &deps{
		db:        db,
		log:       lg,
		txManager: txManager,
		settings:  settings,
		resolver:  resolver,
		workflow: service.NewWorkflowService(txManager, ideaRepo, repository.NewApprovalHistoryRepository(db), userRepo, resolver, dispatcher,
			service.WorkflowOptions{StrictAuthorization: cfg.Workflow.StrictAuthorization}, lg),
		roles: service.NewRoleService(txManager, roleRepo, lg),
	}, nil
}

func seedRolesCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed-roles",
		Usage: "create or refresh the built-in approval roles",
		Action: func(ctx context.Context, c *cli.Command) error {
			d, err := open(c)
			if err != nil {
				return err
			}
			if err := d.roles.SeedDefaultRoles(ctx); err != nil {
				return err
			}
			roles, err := d.roles.ListRoles(ctx)
			if err != nil {
				return err
			}
			return printJSON(roles)
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "show which track a saving cost gets with the current threshold",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "saving-cost", Required: true},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cost, err := decimal.NewFromString(c.String("saving-cost"))
			if err != nil {
				return fmt.Errorf("saving-cost: %w", err)
			}
			d, err := open(c)
			if err != nil {
				return err
			}
			return printJSON(service.NewWorkflowClassifier(d.settings).ClassifyWorkflow(ctx, cost))
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "find the employee holding a role for a division/department",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "role", Required: true, Usage: "role code, e.g. R03"},
			&cli.StringFlag{Name: "division", Usage: "division id"},
			&cli.StringFlag{Name: "department", Usage: "department id"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			divisionID, err := optionalUUID(c.String("division"))
			if err != nil {
				return fmt.Errorf("division: %w", err)
			}
			departmentID, err := optionalUUID(c.String("department"))
			if err != nil {
				return fmt.Errorf("department: %w", err)
			}

			d, err := open(c)
			if err != nil {
				return err
			}
			employee, err := d.resolver.ResolveApprover(ctx, c.String("role"), divisionID, departmentID)
			if err != nil {
				return err
			}
			if employee == nil {
				fmt.Println("no eligible approver")
				return nil
			}
			return printJSON(employee)
		},
	}
}

func pendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "list ideas waiting for an employee's decision",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "employee", Required: true, Usage: "employee id"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			employeeID, err := uuid.Parse(c.String("employee"))
			if err != nil {
				return fmt.Errorf("employee: %w", err)
			}
			d, err := open(c)
			if err != nil {
				return err
			}
			ideas, err := d.workflow.GetPendingApprovalsForUser(ctx, employeeID)
			if err != nil {
				return err
			}
			return printJSON(ideas)
		},
	}
}

func thresholdCommand() *cli.Command {
	return &cli.Command{
		Name:  "threshold",
		Usage: "show or change the HIGH_VALUE threshold",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "set", Usage: "new threshold value"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			d, err := open(c)
			if err != nil {
				return err
			}
			if v := c.String("set"); v != "" {
				updated, err := d.settings.UpdateHighValueThreshold(ctx, uuid.Nil, v)
				if err != nil {
					return err
				}
				return printJSON(updated)
			}
			return printJSON(d.settings.GetHighValueThreshold(ctx))
		},
	}
}

func optionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
