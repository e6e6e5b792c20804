// Package factory instantiates pluggable modules from configuration. A
// module is selected by a type name and receives its raw settings, which
// the factory decodes with Decode:
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	reg.MustRegister("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c InfluxConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewInfluxSink(c), nil
//	})
package factory
