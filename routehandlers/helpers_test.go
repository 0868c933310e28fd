package routehandlers

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/vitalvas/pathway/route"
)

func loaderArgs(target string) route.Args {
	return route.Args{
		RouteID: "users",
		Kind:    route.KindLoader,
		Params:  route.Params{},
		Request: httptest.NewRequest(http.MethodGet, target, nil),
	}
}

func returning(value any, err error) route.HandlerFunc {
	return func(context.Context, route.Args) (any, error) {
		return value, err
	}
}
