package app

import (
	"github.com/specialistvlad/svcgrid/internal/registry"
	"github.com/specialistvlad/svcgrid/modules/env_vars"
	"github.com/specialistvlad/svcgrid/modules/http_client"
	"github.com/specialistvlad/svcgrid/modules/kafka_producer"
	"github.com/specialistvlad/svcgrid/modules/redis_client"
	"github.com/specialistvlad/svcgrid/modules/socketio_client"
	"github.com/specialistvlad/svcgrid/modules/ssl_context"
)

// coreModules is the definitive list of all service types compiled into the
// svcgrid binary.
var coreModules = []registry.Module{
	&ssl_context.Module{},
	&env_vars.Module{},
	&http_client.Module{},
	&redis_client.Module{},
	&kafka_producer.Module{},
	&socketio_client.Module{},
}
