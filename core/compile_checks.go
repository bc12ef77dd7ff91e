package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ GatewayRegistry = (*PaymentGatewayRegistry)(nil)
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ OrderResolver   = mappingOnlyOrderResolver{}
	_ MetricsRecorder = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
