/*
Package monitoring exports scene service metrics to Prometheus.

Metrics carries one collector per concern and doubles as the observer for
the domain packages, so the directory, sessions, the fold controller and the
looper report through it without importing Prometheus themselves:

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	lp := looper.New("scene", looper.WithObserver(metrics))
	dir := directory.NewManager(directory.WithObserver(metrics), directory.WithSessionObserver(metrics))

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

Every metric name starts with scene_. Snapshot returns a compact JSON view
for dashboards that do not scrape.
*/
package monitoring
