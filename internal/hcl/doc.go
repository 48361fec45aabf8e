// Package hcl provides the HCL implementation of config.Loader.
//
// A descriptor file holds any number of service blocks:
//
//	service "redis_client" "cache" {
//	  name  = "Session cache"
//	  state = "ENABLED"
//
//	  properties {
//	    address     = "localhost:6379"
//	    db          = 2
//	    ssl_context = null
//	    password    = env.REDIS_PASSWORD
//	  }
//	}
//
// Property values are converted to strings. A null value unsets the
// property. Properties keep the order they are written in. Expressions can
// read environment variables through the env object and call a small set of
// string functions.
package hcl
