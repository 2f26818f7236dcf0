// Package readiness derives two composite signals from a client's tracked
// activity: a health score (email engagement, milestones, recency, document
// progress) and a launch-readiness score (milestones, assets, activity,
// stage position, contract). Both live in [0,100] with Red/Yellow/Green
// bands at 50 and 80.
//
// The engine informs dashboards and sweeps; it never drives gate decisions.
// Every recalculation is appended to the score log with its delta, and a
// health status band change emits a health.changed event.
package readiness
