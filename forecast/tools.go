package forecast

import (
	"context"
	"fmt"

	"github.com/hivecast/hivecast/tool"
)

// Tools returns the forecasting tool set backed by one client: listing open
// forecasts, fetching forecast data and prior points, and submitting a new
// point forecast.
func Tools(c *Client) []tool.Tool {
	return []tool.Tool{
		newListTool(c),
		newDataTool(c),
		newPointsTool(c),
		newUpdateTool(c),
	}
}

func newListTool(c *Client) tool.Tool {
	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	return tool.NewFunctionTool(
		"get_forecasts",
		"List the forecasts that are available for you to forecast.",
		schema,
		func(ctx context.Context, args map[string]any) (string, error) {
			body, err := c.ListOpen(ctx)
			if err != nil {
				return "", err
			}
			return string(body), nil
		})
}

func newDataTool(c *Client) tool.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"forecast_id": map[string]any{
				"type":        "integer",
				"description": "The ID of the forecast to get data for.",
			},
		},
		"required": []string{"forecast_id"},
	}
	return tool.NewFunctionTool(
		"get_forecast_data",
		"Get the question text, resolution criteria, and metadata for a forecast.",
		schema,
		func(ctx context.Context, args map[string]any) (string, error) {
			id, err := forecastID(args)
			if err != nil {
				return "", err
			}
			body, err := c.Get(ctx, id)
			if err != nil {
				return "", err
			}
			return string(body), nil
		})
}

func newPointsTool(c *Client) tool.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"forecast_id": map[string]any{
				"type":        "integer",
				"description": "The ID of the forecast to get points for.",
			},
		},
		"required": []string{"forecast_id"},
	}
	return tool.NewFunctionTool(
		"get_forecast_points",
		"Get the forecast points previously recorded for a forecast.",
		schema,
		func(ctx context.Context, args map[string]any) (string, error) {
			id, err := forecastID(args)
			if err != nil {
				return "", err
			}
			body, err := c.Points(ctx, id)
			if err != nil {
				return "", err
			}
			return string(body), nil
		})
}

func newUpdateTool(c *Client) tool.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"forecast_id": map[string]any{
				"type":        "integer",
				"description": "The ID of the forecast to update.",
			},
			"point_forecast": map[string]any{
				"type":        "number",
				"description": "The new point forecast, a probability between 0 and 1.",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "The reasoning behind this forecast.",
			},
		},
		"required": []string{"forecast_id", "point_forecast", "reason"},
	}
	return tool.NewFunctionTool(
		"update_forecast",
		"Record a new point forecast for a question. The point forecast must be a probability between 0 and 1.",
		schema,
		func(ctx context.Context, args map[string]any) (string, error) {
			id, err := forecastID(args)
			if err != nil {
				return "", err
			}
			point, ok := args["point_forecast"].(float64)
			if !ok {
				return "", fmt.Errorf("point_forecast must be a number")
			}
			reason, _ := args["reason"].(string)

			body, err := c.Submit(ctx, SubmitRequest{
				ForecastID:    id,
				PointForecast: point,
				Reason:        reason,
			})
			if err != nil {
				return "", err
			}
			return string(body), nil
		})
}

func forecastID(args map[string]any) (int, error) {
	n, ok := args["forecast_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("forecast_id must be an integer")
	}
	return int(n), nil
}
