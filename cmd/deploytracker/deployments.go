package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"deploytracker/internal/client"
	"deploytracker/internal/models"
)

var deploymentsCmd = &cobra.Command{
	Use:     "deployments",
	Aliases: []string{"deployment", "deploy"},
	Short:   "Work with deployments on a running server",
}

var deploymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployments",
	Run:   runDeploymentsList,
}

var deploymentsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new deployment",
	Run:   runDeploymentsAdd,
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Show deployments per environment",
	Run:   runChart,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the tracker session",
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Discard the session's deployments and draft",
	Run:   runSessionEnd,
}

var (
	serverURL         string
	sessionID         string
	requestTimeout    time.Duration
	deployName        string
	deployEnvironment string
	deployStatus      string
)

func init() {
	rootCmd.AddCommand(deploymentsCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(sessionCmd)
	deploymentsCmd.AddCommand(deploymentsListCmd)
	deploymentsCmd.AddCommand(deploymentsAddCmd)
	sessionCmd.AddCommand(sessionEndCmd)

	for _, cmd := range []*cobra.Command{deploymentsCmd, chartCmd, sessionCmd} {
		cmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Tracker server URL")
		cmd.PersistentFlags().StringVar(&sessionID, "session", os.Getenv("DEPLOYTRACKER_SESSION"), "Session to resume (prints one when empty)")
		cmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "Timeout for each request to the server")
	}

	deploymentsAddCmd.Flags().StringVarP(&deployName, "name", "n", "", "Deployment name")
	deploymentsAddCmd.Flags().StringVarP(&deployEnvironment, "environment", "e", string(models.EnvironmentProduction), "Environment (production/staging/development)")
	deploymentsAddCmd.Flags().StringVar(&deployStatus, "status", string(models.DeploymentStatusPending), "Status (pending/success/failed)")
}

func getClient() *client.Client {
	c, err := client.New(serverURL,
		client.WithSession(sessionID),
		client.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
	)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}
	return c
}

func runDeploymentsList(cmd *cobra.Command, args []string) {
	c := getClient()
	ctx := cmd.Context()

	deployments, err := c.ListDeployments(ctx)
	if err != nil {
		log.Fatalf("Failed to list deployments: %v", err)
	}

	printDeployments(os.Stdout, deployments)
	printSession(c)
}

func runDeploymentsAdd(cmd *cobra.Command, args []string) {
	if _, err := models.ParseEnvironment(deployEnvironment); err != nil {
		log.Fatalf("Invalid environment: %s (must be production, staging or development)", deployEnvironment)
	}
	if _, err := models.ParseStatus(deployStatus); err != nil {
		log.Fatalf("Invalid status: %s (must be pending, success or failed)", deployStatus)
	}

	c := getClient()
	ctx := cmd.Context()

	d, err := c.AddDeployment(ctx, client.NewDeployment{
		Name:        deployName,
		Environment: deployEnvironment,
		Status:      deployStatus,
	})
	if err != nil {
		log.Fatalf("Failed to add deployment: %v", err)
	}

	fmt.Printf("Deployment %q recorded (ID: %d, environment: %s, status: %s, date: %s)\n",
		d.Name, d.ID, d.Environment, d.Status, d.Date)
	printSession(c)
}

func runChart(cmd *cobra.Command, args []string) {
	c := getClient()
	ctx := cmd.Context()

	points, err := c.Chart(ctx)
	if err != nil {
		log.Fatalf("Failed to load chart: %v", err)
	}

	printChart(os.Stdout, points)
	printSession(c)
}

func runSessionEnd(cmd *cobra.Command, args []string) {
	if sessionID == "" {
		log.Fatalf("No session given: pass --session or set DEPLOYTRACKER_SESSION")
	}

	c := getClient()
	if err := c.EndSession(cmd.Context()); err != nil {
		log.Fatalf("Failed to end session: %v", err)
	}

	fmt.Printf("Session %s ended\n", sessionID)
}

func printDeployments(out io.Writer, deployments []models.Deployment) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENVIRONMENT\tSTATUS\tDATE")
	for _, d := range deployments {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Environment, d.Status, d.Date)
	}
	w.Flush()
}

func printChart(out io.Writer, points []models.ChartPoint) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENVIRONMENT\tDEPLOYMENTS\t")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%d\t%s\n", p.Name, p.Deployments, strings.Repeat("#", p.Deployments))
	}
	w.Flush()
}

func printSession(c *client.Client) {
	if sessionID == "" && c.SessionID() != "" {
		fmt.Fprintf(os.Stderr, "session: %s (pass --session or set DEPLOYTRACKER_SESSION to continue it)\n", c.SessionID())
	}
}
