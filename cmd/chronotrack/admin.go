package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	ctnats "github.com/chronotrack-io/chronotrack/internal/adapter/nats"
	"github.com/chronotrack-io/chronotrack/internal/adapter/postgres"
	"github.com/chronotrack-io/chronotrack/internal/config"
	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
	"github.com/chronotrack-io/chronotrack/internal/port/messagequeue"
	"github.com/chronotrack-io/chronotrack/internal/resilience"
	"github.com/chronotrack-io/chronotrack/internal/service"
)

// runAdmin dispatches admin subcommands (list-orgs, orphans, drop-tenant).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "list-orgs":
		return runAdminListOrgs(args[1:])
	case "orphans":
		return runAdminOrphans(args[1:])
	case "drop-tenant":
		return runAdminDropTenant(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: chronotrack admin <command> [options]

Commands:
  list-orgs    List all registered organizations
  orphans      List tenant databases no organization references
  drop-tenant  Drop a tenant database (registry row is kept for audit)
  help         Show this help message

Examples:
  chronotrack admin list-orgs
  chronotrack admin orphans
  chronotrack admin drop-tenant --name chronotrack_tenant_7
  chronotrack admin drop-tenant --name chronotrack_tenant_7 --yes
`)
}

// adminDeps bundles what the subcommands need. The queue is nil when NATS is
// unreachable; lifecycle events are then skipped rather than blocking the
// operator.
type adminDeps struct {
	orgs    *service.OrganizationService
	cleanup func()
}

func loadAdminDeps() (*adminDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx := context.Background()
	registryPool, err := postgres.NewPool(ctx, cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("connect to registry: %w", err)
	}

	adminPool, err := postgres.NewPool(ctx, config.Postgres{
		DSN:      cfg.TenantAdmin.DSN,
		MaxConns: 2,
		MinConns: 1,
	})
	if err != nil {
		registryPool.Close()
		return nil, fmt.Errorf("connect to admin database: %w", err)
	}

	var queue messagequeue.Queue
	if q, err := ctnats.Connect(ctx, cfg.NATS.URL); err != nil {
		log.Warn("nats unreachable, lifecycle events will not be published", "error", err)
	} else {
		queue = q
	}

	registry := postgres.NewRegistryStore(registryPool)
	tenantAdmin := postgres.NewTenantAdmin(adminPool, cfg.TenantAdmin.DSN)
	tenantPools := postgres.NewTenantPools(cfg.TenantAdmin.DSN, cfg.TenantAdmin.TenantMaxConns)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	provisioner := service.NewProvisioner(tenantAdmin, tenantPools, breaker, cfg.Provision, log)
	orgs := service.NewOrganizationService(registry, provisioner, tenantPools, queue, log)

	cleanup := func() {
		if queue != nil {
			_ = queue.Drain()
		}
		tenantPools.Close()
		adminPool.Close()
		registryPool.Close()
	}
	return &adminDeps{orgs: orgs, cleanup: cleanup}, nil
}

func runAdminListOrgs(args []string) error {
	fs := flag.NewFlagSet("list-orgs", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	orgs, err := deps.orgs.List(context.Background())
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	if len(orgs) == 0 {
		fmt.Println("No organizations found.")
		return nil
	}

	return writeOrgTable(os.Stdout, orgs)
}

// writeOrgTable renders organizations as an aligned table.
func writeOrgTable(out io.Writer, orgs []organization.Organization) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tDATABASE\tPLAN\tSEATS\tCREATED")
	for i := range orgs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			orgs[i].ID, orgs[i].Name, orgs[i].DatabaseName, orgs[i].LicensePlan,
			orgs[i].LicenseSeats, orgs[i].CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func runAdminOrphans(args []string) error {
	fs := flag.NewFlagSet("orphans", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	orphans, err := deps.orgs.Orphans(context.Background())
	if err != nil {
		return fmt.Errorf("list orphans: %w", err)
	}

	if len(orphans) == 0 {
		fmt.Println("No orphaned tenant databases.")
		return nil
	}

	fmt.Println("Orphaned tenant databases (not referenced by any organization):")
	for _, name := range orphans {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println("\nReview before removing: chronotrack admin drop-tenant --name <database>")
	return nil
}

func runAdminDropTenant(args []string) error {
	fs := flag.NewFlagSet("drop-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "tenant database name (required)")
	operator := fs.String("operator", "", "operator recorded in the drop event (defaults to the OS user)")
	yes := fs.Bool("yes", false, "skip the interactive confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	op := *operator
	if op == "" {
		if u, err := user.Current(); err == nil {
			op = u.Username
		} else {
			op = "unknown"
		}
	}

	if !*yes {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("refusing to drop %s without a terminal; pass --yes to confirm", *name)
		}
		fmt.Fprintf(os.Stderr, "This permanently deletes %s and all its data.\nType the database name to confirm: ", *name)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		if strings.TrimSpace(line) != *name {
			return fmt.Errorf("confirmation did not match, aborting")
		}
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	if err := deps.orgs.DropTenant(context.Background(), *name, op); err != nil {
		return fmt.Errorf("drop tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Dropped %s (operator=%s). The registry row, if any, was kept for audit.\n", *name, op)
	return nil
}
