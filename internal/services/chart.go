package services

import "deploytracker/internal/models"

// Project counts deployments per environment, in chart order. Every
// environment gets a point, including those with no deployments.
func Project(deployments []models.Deployment) []models.ChartPoint {
	counts := make(map[models.Environment]int, len(models.Environments))
	for _, d := range deployments {
		counts[d.Environment]++
	}

	points := make([]models.ChartPoint, 0, len(models.Environments))
	for _, env := range models.Environments {
		points = append(points, models.ChartPoint{Name: env, Deployments: counts[env]})
	}
	return points
}

// MaxDeployments returns the tallest bar, used to scale the chart.
func MaxDeployments(points []models.ChartPoint) int {
	max := 0
	for _, p := range points {
		if p.Deployments > max {
			max = p.Deployments
		}
	}
	return max
}
