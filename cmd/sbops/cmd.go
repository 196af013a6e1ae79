package main

import (
	"flag"

	klog "k8s.io/klog/v2"
)

// quietKlog limits klog noise from client-go and helm so that command output
// stays readable.
func quietKlog() {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	_ = fs.Set("stderrthreshold", "FATAL")
	_ = fs.Set("v", "0")
	_ = fs.Set("logtostderr", "false")
	_ = fs.Set("alsologtostderr", "false")
}
