/*
Package fold turns hinge sensor readings into discrete fold and rotation states.

# Inputs

A continuous hinge angle in degrees and a hall reading (1 open, 0 folded) arrive
asynchronously from a sensor plugin. Motion events carry a rotation in degrees.

# Policies

SinglePolicy serves single-display devices. With the large-fold feature flag
off it applies fixed bands; with it on, the decision boundary moves with hall
transitions so a hinge resting near a threshold does not chatter.

DualPolicy serves inward-folding dual-display devices. Its half-fold band
narrows when the foreground application is not on the hall-switch allow-list.
A hall close reported at a wide angle is debounced while fresh angle readings
are awaited.

# Controller

Controller validates raw sensor events, keeps an angle history for dumps and
publishes fold status and rotation changes to a StatusSink. A missing sink
target is logged and ignored, leaving the last known state in place.

# Plugins

PluginLoader resolves the sensor subscribe/unsubscribe symbols from a shared
object, retrying a bounded number of times before reporting the feature as
unavailable until Reload.
*/
package fold
