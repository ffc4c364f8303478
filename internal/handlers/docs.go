package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func schemaType(t string) object { return object{"type": t} }

func nullable(t string) object { return object{"type": t, "nullable": true} }

func arrayOf(items object) object { return object{"type": "array", "items": items} }

func props(p object) object { return object{"type": "object", "properties": p} }

func jsonResponse(description string, schema object) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{"schema": schema},
		},
	}
}

func queryParam(name, description string, schema object) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

// selectionParams documents the three repeatable filter parameters.
var selectionParams = []object{
	queryParam(ParamAirline, "Airline to include; repeat for several. Omit for all airlines, pass empty to select none.", arrayOf(schemaType("string"))),
	queryParam(ParamDayOfMonth, "Day of month to include; repeat for several. Omit for all days, pass empty to select none.", arrayOf(schemaType("integer"))),
	queryParam(ParamDayOfWeek, "Day of week to include; repeat for several. Omit for all days, pass empty to select none.", arrayOf(schemaType("string"))),
}

var selectionSchema = props(object{
	"airlines":      arrayOf(schemaType("string")),
	"days_of_month": arrayOf(schemaType("integer")),
	"days_of_week":  arrayOf(schemaType("string")),
})

var flightSchema = props(object{
	"airline":       schemaType("string"),
	"day_of_month":  schemaType("integer"),
	"day_of_week":   schemaType("string"),
	"arrival_delay": nullable("number"),
	"distance":      nullable("number"),
	"elapsed_time":  nullable("number"),
})

var summarySchema = props(object{
	"selection": selectionSchema,
	"summary": props(object{
		"flight_count":        schemaType("integer"),
		"average_delay":       nullable("number"),
		"total_distance":      schemaType("integer"),
		"average_flight_time": nullable("number"),
		"flights_by_airline": arrayOf(props(object{
			"airline": schemaType("string"),
			"flights": schemaType("integer"),
		})),
		"flight_time_by_airline": arrayOf(props(object{
			"airline":      schemaType("string"),
			"elapsed_time": schemaType("number"),
		})),
	}),
	"display": props(object{
		"average_delay":       schemaType("string"),
		"distance_flown":      schemaType("string"),
		"average_flight_time": schemaType("string"),
	}),
})

func buildOpenAPISpec() object {
	pageParams := []object{
		queryParam("page", "Page number (default: 1)", object{"type": "integer", "default": 1}),
		queryParam("limit", "Records per page (default: 100, max: 1000)", object{"type": "integer", "default": 100}),
	}

	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Flight Statistics API",
			"description": "Filter January flight records by airline, day of month and day of week, and summarize the result",
			"version":     "1.0.0",
		},
		"servers": []object{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/filters": object{
				"get": object{
					"summary": "List filter values",
					"responses": object{
						"200": jsonResponse("Distinct values of each dimension", props(object{
							"options": selectionSchema,
							"table": props(object{
								"source":    schemaType("string"),
								"rows":      schemaType("integer"),
								"columns":   arrayOf(schemaType("string")),
								"loaded_at": object{"type": "string", "format": "date-time"},
							}),
						})),
					},
				},
			},
			"/api/flights": object{
				"get": object{
					"summary":    "Get filtered flights",
					"parameters": append(append([]object{}, selectionParams...), pageParams...),
					"responses": object{
						"200": jsonResponse("A page of the filtered view", props(object{
							"data":        arrayOf(flightSchema),
							"total":       schemaType("integer"),
							"page":        schemaType("integer"),
							"limit":       schemaType("integer"),
							"total_pages": schemaType("integer"),
							"selection":   selectionSchema,
						})),
						"400": jsonResponse("Invalid day_of_month", props(object{"message": schemaType("string")})),
					},
				},
			},
			"/api/summary": object{
				"get": object{
					"summary":     "Summarize filtered flights",
					"description": "Averages are null and displayed as N/A when the view is empty",
					"parameters":  selectionParams,
					"responses": object{
						"200": jsonResponse("KPI figures and per-airline groupings", summarySchema),
						"400": jsonResponse("Invalid day_of_month", props(object{"message": schemaType("string")})),
					},
				},
			},
			"/api/live": object{
				"get": object{
					"summary":     "Live dashboard socket",
					"description": `WebSocket. Send {"action":"select","selection":{...}} or {"action":"reset"}; receive {"type":"result","result":{...}} after each change`,
					"responses": object{
						"101": object{"description": "Switching protocols"},
					},
				},
			},
			"/health": object{
				"get": object{
					"summary": "Health check",
					"responses": object{
						"200": jsonResponse("API is healthy", props(object{
							"status": schemaType("string"),
							"rows":   schemaType("integer"),
						})),
					},
				},
			},
			"/metrics": object{
				"get": object{
					"summary": "Prometheus metrics",
					"responses": object{
						"200": object{
							"description": "Prometheus metrics in text format",
							"content": object{
								"text/plain": object{"schema": schemaType("string")},
							},
						},
					},
				},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Flight Statistics API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buildOpenAPISpec())
}
