package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// readPassword is swapped out in tests
var readPassword = func() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return string(b), err
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err := dispatch(newClient(), os.Stdout, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func dispatch(c *client, out io.Writer, command string, args []string) error {
	switch command {
	case "auth":
		return handleAuth(c, out, args)
	case "tenant":
		return handleTenant(c, out, args)
	case "source":
		return handleSource(c, out, args)
	case "pipeline":
		return handlePipeline(c, out, args)
	case "health":
		return showHealth(c, out, args)
	case "user":
		return handleUser(c, out, args)
	case "help":
		printUsage(out)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func subcommand(args []string, usage string) (string, []string, error) {
	if len(args) < 1 {
		return "", nil, fmt.Errorf("usage: %s", usage)
	}
	return args[0], args[1:], nil
}

// Auth commands
func handleAuth(c *client, out io.Writer, args []string) error {
	sub, rest, err := subcommand(args, "tenantsync auth <login|logout|who>")
	if err != nil {
		return err
	}
	switch sub {
	case "login":
		return loginUser(c, out, rest)
	case "logout":
		if err := c.clearToken(); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Logged out")
		return nil
	case "who":
		return whoAmI(c, out)
	default:
		return fmt.Errorf("unknown auth command: %s", sub)
	}
}

func loginUser(c *client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("-username is required")
	}
	if *password == "" {
		p, err := readPassword()
		if err != nil {
			return err
		}
		*password = p
	}

	token, err := c.login(*username, *password)
	if err != nil {
		return err
	}
	if err := c.saveToken(token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	fmt.Fprintf(out, "✓ Logged in as: %s\n", *username)
	return nil
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
}

func whoAmI(c *client, out io.Writer) error {
	var me struct {
		userView
		Permissions []string `json:"permissions"`
	}
	if err := c.do("GET", "/users/me", nil, &me); err != nil {
		return err
	}
	tenant := me.TenantID
	if tenant == "" {
		tenant = "-"
	}
	fmt.Fprintf(out, "✓ %s (role: %s, tenant: %s)\n", me.Username, me.Role, tenant)
	if len(me.Permissions) > 0 {
		fmt.Fprintf(out, "  permissions: %s\n", strings.Join(me.Permissions, ", "))
	}
	return nil
}

// Tenant commands
type tenantView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

func handleTenant(c *client, out io.Writer, args []string) error {
	sub, rest, err := subcommand(args, "tenantsync tenant <list|create|get>")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		var tenants []tenantView
		if err := c.do("GET", "/tenants/", nil, &tenants); err != nil {
			return err
		}
		printTenants(out, tenants...)
		return nil
	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		name := fs.String("name", "", "tenant name")
		email := fs.String("email", "", "contact email")
		tz := fs.String("timezone", "", "IANA timezone (default UTC)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		var t tenantView
		payload := map[string]string{"name": *name, "email": *email, "timezone": *tz}
		if err := c.do("POST", "/tenants/", payload, &t); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Tenant created: %s\n", t.ID)
		return nil
	case "get":
		if len(rest) < 1 {
			return fmt.Errorf("usage: tenantsync tenant get <tenant-id>")
		}
		var t tenantView
		if err := c.do("GET", "/tenants/"+rest[0], nil, &t); err != nil {
			return err
		}
		printTenants(out, t)
		return nil
	default:
		return fmt.Errorf("unknown tenant command: %s", sub)
	}
}

func printTenants(out io.Writer, tenants ...tenantView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tTIMEZONE")
	for _, t := range tenants {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Email, t.Timezone)
	}
	w.Flush()
}

// Source config commands
func handleSource(c *client, out io.Writer, args []string) error {
	sub, rest, err := subcommand(args, "tenantsync source <add|list>")
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet(sub, flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant ID")
	host := fs.String("host", "", "source database host")
	port := fs.Int("port", 5432, "source database port")
	user := fs.String("user", "", "source database username")
	password := fs.String("password", "", "source database password (prompted when omitted)")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *tenant == "" {
		return fmt.Errorf("-tenant is required")
	}
	path := "/tenants/" + *tenant + "/source-config/"

	switch sub {
	case "add":
		if *password == "" {
			p, err := readPassword()
			if err != nil {
				return err
			}
			*password = p
		}
		payload := map[string]any{
			"db_host":     *host,
			"db_port":     *port,
			"db_username": *user,
			"db_password": *password,
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := c.do("POST", path, payload, &created); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Source config added: %s\n", created.ID)
		return nil
	case "list":
		var cfgs []struct {
			ID         string `json:"id"`
			DBHost     string `json:"db_host"`
			DBPort     int    `json:"db_port"`
			DBUsername string `json:"db_username"`
		}
		if err := c.do("GET", path, nil, &cfgs); err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tHOST\tPORT\tUSER")
		for _, cfg := range cfgs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", cfg.ID, cfg.DBHost, cfg.DBPort, cfg.DBUsername)
		}
		w.Flush()
		return nil
	default:
		return fmt.Errorf("unknown source command: %s", sub)
	}
}

// Pipeline commands
func handlePipeline(c *client, out io.Writer, args []string) error {
	sub, rest, err := subcommand(args, "tenantsync pipeline <get|set> <tenant-id>")
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		return fmt.Errorf("usage: tenantsync pipeline %s <tenant-id>", sub)
	}
	tenantID, rest := rest[0], rest[1:]
	path := "/tenants/" + tenantID + "/pipeline/"

	var status struct {
		IsActive bool `json:"is_active"`
	}
	switch sub {
	case "get":
		if err := c.do("GET", path, nil, &status); err != nil {
			return err
		}
	case "set":
		fs := flag.NewFlagSet("set", flag.ContinueOnError)
		active := fs.Bool("active", true, "whether the pipeline runs")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := c.do("POST", path, map[string]bool{"is_active": *active}, &status); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown pipeline command: %s", sub)
	}

	state := "inactive"
	if status.IsActive {
		state = "active"
	}
	fmt.Fprintf(out, "Pipeline for %s: %s\n", tenantID, state)
	return nil
}

func showHealth(c *client, out io.Writer, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tenantsync health <tenant-id>")
	}
	var report struct {
		LastSyncTime string `json:"last_sync_time"`
		LastError    string `json:"last_error"`
		Status       string `json:"status"`
	}
	if err := c.do("GET", "/health/"+args[0], nil, &report); err != nil {
		return err
	}
	fmt.Fprintf(out, "Status: %s\nLast sync: %s\nLast error: %s\n", report.Status, report.LastSyncTime, report.LastError)
	return nil
}

// User commands
func handleUser(c *client, out io.Writer, args []string) error {
	sub, rest, err := subcommand(args, "tenantsync user <create|me|list|delete>")
	if err != nil {
		return err
	}
	switch sub {
	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		username := fs.String("username", "", "username")
		password := fs.String("password", "", "password (prompted when omitted)")
		role := fs.String("role", "user", "admin|tenant_admin|user")
		tenant := fs.String("tenant", "", "tenant ID")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *password == "" {
			p, err := readPassword()
			if err != nil {
				return err
			}
			*password = p
		}
		payload := map[string]string{
			"username": *username,
			"password": *password,
			"role":     *role,
		}
		if *tenant != "" {
			payload["tenant_id"] = *tenant
		}
		var u userView
		if err := c.do("POST", "/users/", payload, &u); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ User created: %s (%s)\n", u.Username, u.ID)
		return nil
	case "me":
		return whoAmI(c, out)
	case "list":
		if len(rest) < 1 {
			return fmt.Errorf("usage: tenantsync user list <tenant-id>")
		}
		var users []userView
		if err := c.do("GET", "/tenants/"+rest[0]+"/users/", nil, &users); err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tROLE")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Username, u.Role)
		}
		w.Flush()
		return nil
	case "delete":
		if len(rest) < 1 {
			return fmt.Errorf("usage: tenantsync user delete <user-id>")
		}
		if err := c.do("DELETE", "/users/"+rest[0], nil, nil); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ User deleted: %s\n", rest[0])
		return nil
	default:
		return fmt.Errorf("unknown user command: %s", sub)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `TenantSync CLI

Usage:
  tenantsync <command> [options]

Commands:
  auth       Authentication (login, logout, who)
  tenant     Tenants (list, create, get)
  source     Source database configs (add, list)
  pipeline   Pipeline switch (get, set)
  health     Pipeline health of a tenant
  user       Accounts (create, me, list, delete)
  help       Show this help message

Environment Variables:
  TENANTSYNC_API    API endpoint (default: http://localhost:8080)

Examples:
  tenantsync auth login -username admin
  tenantsync tenant create -name Acme -email ops@acme.example
  tenantsync source add -tenant <id> -host db.acme.internal -user etl
  tenantsync pipeline set <id> -active=false
  tenantsync health <id>
`)
}
