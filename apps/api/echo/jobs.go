package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/jobs"
)

type jobsApi struct {
	runner *jobs.Runner
}

// registerJobsAPI exposes the sweeps to an external scheduler, eg. `POST /v1/jobs/complete-classes`.
func registerJobsAPI(g *echo.Group, runner *jobs.Runner) {
	api := jobsApi{runner: runner}

	jg := g.Group("/jobs", cronKeyMiddleware())
	jg.GET("", api.names)
	jg.POST("/:name", api.run)
}

func (api *jobsApi) names(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.runner.Names())
}

func (api *jobsApi) run(ctx echo.Context) error {
	res, err := api.runner.Run(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "running job")
	}
	return ctx.JSON(http.StatusOK, res)
}
