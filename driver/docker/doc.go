/*
Package docker implements the container driver for the Docker daemon.

Game server containers are named “valpanel_<slug>”, get their world
directories bind-mounted (configuration, the game server installation with
its world saves, and backups), and have their UDP port block published 1:1
onto the host. Containers are created without any daemon-side restart
policy: convergence on the desired state is the panel's job, and a daemon
auto-restarting a server the panel wants stopped would fight it.
*/
package docker
